package respond

import (
	"context"
	"testing"

	"github.com/nkovacs/adnsd/internal/provider"
	"github.com/nkovacs/adnsd/internal/wire"
)

func TestRespondPlainQuery(t *testing.T) {
	z := newTestZone(t)
	p := wire.Packet{
		Header:    wire.Header{ID: 7, RecursionDesired: true},
		Questions: []wire.Question{{Name: mustName(t, "www.example.com"), Type: wire.TypeA, Class: wire.ClassIN}},
	}
	raw := p.Serialize(1232)

	updates := make(chan provider.Update, 1)
	resp := Respond(context.Background(), false, z, updates, "1.2.3.4:1234", raw)
	if resp == nil {
		t.Fatalf("expected a response")
	}
	if len(resp.packets) != 1 {
		t.Fatalf("expected a single packet, got %d", len(resp.packets))
	}
	out := resp.packets[0]
	if out.Header.RCode != wire.NoError {
		t.Fatalf("expected NoError, got %v", out.Header.RCode)
	}
	if len(out.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(out.Answers))
	}
}

func TestRespondMalformedPacketReturnsNil(t *testing.T) {
	z := newTestZone(t)
	updates := make(chan provider.Update, 1)
	resp := Respond(context.Background(), false, z, updates, "1.2.3.4:1234", []byte{0x01})
	if resp != nil {
		t.Fatalf("expected nil for an unparseable packet")
	}
}

func TestRespondRefusesAXFROverUDP(t *testing.T) {
	z := newTestZone(t)
	p := wire.Packet{
		Header:    wire.Header{ID: 1},
		Questions: []wire.Question{{Name: wire.Name{}, Type: wire.TypeAXFR, Class: wire.ClassIN}},
	}
	raw := p.Serialize(1232)

	updates := make(chan provider.Update, 1)
	resp := Respond(context.Background(), false, z, updates, "1.2.3.4:1234", raw)
	if resp == nil || resp.packets[0].Header.RCode != wire.Refused {
		t.Fatalf("expected AXFR over UDP to be refused")
	}
}

func TestRespondRefusesUnsignedUpdate(t *testing.T) {
	z := newTestZone(t)
	p := wire.Packet{
		Header:    wire.Header{ID: 1, Opcode: wire.OpcodeUpdate},
		Questions: []wire.Question{{Name: mustName(t, "example.com"), Type: wire.TypeSOA, Class: wire.ClassIN}},
	}
	raw := p.Serialize(1232)

	updates := make(chan provider.Update, 1)
	resp := Respond(context.Background(), false, z, updates, "1.2.3.4:1234", raw)
	if resp == nil || resp.packets[0].Header.RCode != wire.Refused {
		t.Fatalf("expected an unsigned update to be refused")
	}
}

func TestRespondUnknownOpcodeIsNotImplemented(t *testing.T) {
	z := newTestZone(t)
	p := wire.Packet{Header: wire.Header{ID: 1, Opcode: wire.OpcodeStatus}}
	raw := p.Serialize(1232)

	updates := make(chan provider.Update, 1)
	resp := Respond(context.Background(), false, z, updates, "1.2.3.4:1234", raw)
	if resp == nil || resp.packets[0].Header.RCode != wire.NotImplemented {
		t.Fatalf("expected NotImplemented for a status query")
	}
}
