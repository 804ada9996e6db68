package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		ID:                 0x1234,
		QR:                 Response,
		Opcode:             OpcodeQuery,
		Authoritative:      true,
		RecursionDesired:   true,
		RecursionAvailable: true,
		RCode:              NoError,
		QuestionCount:      1,
		AnswerCount:        2,
		NameserverCount:    0,
		AdditionalCount:    1,
	}
	b := h.Bytes()
	got := parseHeader(b[:])
	if got != h {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
}

func TestHeaderRejectsReservedOpcode(t *testing.T) {
	h := Header{Opcode: Opcode(15)}
	if h.validate() {
		t.Fatalf("expected reserved opcode to fail validation")
	}
}
