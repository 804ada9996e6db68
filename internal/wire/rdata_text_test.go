package wire

import "testing"

func TestRecordDataTextRoundTripSOA(t *testing.T) {
	text := "ns1.example.com hostmaster.example.com 2024010100 3600 900 604800 300"
	data, err := ParseRecordDataText(TypeSOA, text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if data.String() != text {
		t.Fatalf("round trip mismatch: got %q want %q", data.String(), text)
	}
}

func TestRecordDataTextEscapesTXT(t *testing.T) {
	data := TXTData{Strings: []string{`has "quotes" and spaces`}}
	rendered := data.String()
	if rendered != `"has\ \"quotes\"\ and\ spaces"` {
		t.Fatalf("unexpected escaping: %q", rendered)
	}
	parsed, err := ParseRecordDataText(TypeTXT, rendered)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	txt, ok := parsed.(TXTData)
	if !ok || len(txt.Strings) != 1 || txt.Strings[0] != `has "quotes" and spaces` {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
}

func TestRecordDataTextMX(t *testing.T) {
	data, err := ParseRecordDataText(TypeMX, "10 mail.example.com.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mx, ok := data.(MXData)
	if !ok || mx.Preference != 10 {
		t.Fatalf("unexpected result: %+v", data)
	}
}

func TestRecordDataTextMissingArgument(t *testing.T) {
	if _, err := ParseRecordDataText(TypeMX, "10"); err == nil {
		t.Fatalf("expected error for missing exchange argument")
	}
}

func TestRecordDataTextURI(t *testing.T) {
	data, err := ParseRecordDataText(TypeURI, `10 1 "https://example.com/path"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	uri, ok := data.(URIData)
	if !ok || uri.Target != "https://example.com/path" {
		t.Fatalf("unexpected result: %+v", data)
	}
}
