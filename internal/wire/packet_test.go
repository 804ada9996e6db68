package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestPacketRoundTripQuery(t *testing.T) {
	name := MustParseName("google.com")
	p := Packet{
		Header:    Header{ID: 0xBEEF, RecursionDesired: true},
		Questions: []Question{{Name: name, Type: TypeA, Class: ClassIN}},
	}
	encoded := p.Serialize(1232)

	got, tsig, err := ParsePacket(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tsig != nil {
		t.Fatalf("did not expect a TSIG record")
	}
	if len(got.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got.Questions))
	}
	if !got.Questions[0].Name.Equal(name) {
		t.Fatalf("name mismatch: %s", got.Questions[0].Name)
	}
	if got.Questions[0].Type != TypeA {
		t.Fatalf("type mismatch")
	}
	reencoded := got.Serialize(1232)
	if !bytes.Equal(encoded, reencoded) {
		t.Fatalf("re-encoding mismatch:\n%x\n%x", encoded, reencoded)
	}
}

func TestPacketRoundTripWithCompression(t *testing.T) {
	apex := MustParseName("example.com")
	www := MustParseName("www.example.com")
	p := Packet{
		Header:    Header{ID: 1, QR: Response, Authoritative: true},
		Questions: []Question{{Name: www, Type: TypeA, Class: ClassIN}},
		Answers: []Record{
			NewRecord(www, 300, AData{Addr: [4]byte{127, 0, 0, 1}}),
			NewRecord(apex, 300, NSData{NSDName: apex}),
		},
	}
	encoded := p.Serialize(1232)
	// Without compression the four names take 17+17+13+13 bytes and the
	// whole packet is exactly 100 bytes; with compression it is 63 bytes.
	if len(encoded) >= 100 {
		t.Fatalf("expected compression to keep the packet small, got %d bytes", len(encoded))
	}

	got, _, err := ParsePacket(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	if !got.Answers[0].Name.Equal(www) {
		t.Fatalf("first answer name mismatch: %s", got.Answers[0].Name)
	}
	if !got.Answers[1].Name.Equal(apex) {
		t.Fatalf("second answer name mismatch: %s", got.Answers[1].Name)
	}
}

func TestPacketTruncatesOversizeResponse(t *testing.T) {
	name := MustParseName("example.com")
	var answers []Record
	for i := 0; i < 200; i++ {
		answers = append(answers, NewRecord(name, 300, TXTData{Strings: []string{"padding to force truncation of this response"}}))
	}
	p := Packet{
		Header:    Header{ID: 1, QR: Response},
		Questions: []Question{{Name: name, Type: TypeTXT, Class: ClassIN}},
		Answers:   answers,
	}
	out := p.Serialize(512)
	if len(out) != 512 {
		t.Fatalf("expected truncated output capped at 512 bytes, got %d", len(out))
	}
	got := parseHeader(out[:HeaderLength])
	if !got.Truncated {
		t.Fatalf("expected TC bit to be set on truncated response")
	}
}

func TestPacketRejectsHeaderTruncated(t *testing.T) {
	_, _, err := ParsePacket([]byte{1, 2, 3})
	if err == nil {
		t.Fatalf("expected error for too-short packet")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != HeaderTruncated {
		t.Fatalf("expected HeaderTruncated, got %v", err)
	}
}

func TestPacketDetachesTrailingTSIG(t *testing.T) {
	name := MustParseName("example.com")
	keyName := MustParseName("key.example.com")
	algo := MustParseName("hmac-sha256")
	p := Packet{
		Header:    Header{ID: 1, RecursionDesired: true},
		Questions: []Question{{Name: name, Type: TypeA, Class: ClassIN}},
		AdditionalRecords: []Record{
			func() Record {
				r := NewRecord(keyName, 0, TSIGData{
					Algorithm:  algo,
					TimeSigned: 1700000000,
					Fudge:      300,
					MAC:        []byte{1, 2, 3, 4},
					OriginalID: 1,
				})
				r.Class = Class(255)
				return r
			}(),
		},
	}
	encoded := p.Serialize(1232)
	got, tsig, err := ParsePacket(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got.AdditionalRecords) != 0 {
		t.Fatalf("expected TSIG record to be detached from additional records")
	}
	if tsig == nil {
		t.Fatalf("expected a detached TSIG record")
	}
	if !tsig.Name.Equal(keyName) {
		t.Fatalf("tsig name mismatch: %s", tsig.Name)
	}
	if tsig.Data.Fudge != 300 {
		t.Fatalf("tsig fudge mismatch: %d", tsig.Data.Fudge)
	}
}
