package respond

import (
	"testing"

	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

func mustName(t *testing.T, s string) wire.Name {
	t.Helper()
	n, err := wire.ParseName(s)
	if err != nil {
		t.Fatalf("parse name %q: %v", s, err)
	}
	return n
}

func newTestZone(t *testing.T) *zone.Zone {
	t.Helper()
	z := zone.New()
	z.SOA = &wire.SOAData{
		MName: mustName(t, "ns1.example.com"), RName: mustName(t, "hostmaster.example.com"),
		Serial: 1, Refresh: 3600, Retry: 900, Expire: 604800, Minimum: 300,
	}
	z.Nameservers = []wire.Name{mustName(t, "ns1.example.com")}
	z.Records = []wire.Record{
		wire.NewRecord(mustName(t, "www.example.com"), 300, wire.AData{Addr: [4]byte{1, 2, 3, 4}}),
		wire.NewRecord(mustName(t, "alias.example.com"), 300, wire.CNAMEData{Target: mustName(t, "www.example.com")}),
		wire.NewRecord(mustName(t, "mail.example.com"), 300, wire.MXData{Preference: 10, Exchange: mustName(t, "www.example.com")}),
	}
	return z
}

func TestAnswerOneVersionBind(t *testing.T) {
	z := newTestZone(t)
	var answer zone.ZoneAnswer
	var state zone.AnswerState
	answerOne(z, wire.Question{Name: versionBindName, Type: wire.TypeTXT, Class: wire.ClassIN}, &answer, &state)
	if len(answer.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(answer.Answers))
	}
	if state != zone.AnswerDomainSeen {
		t.Fatalf("expected DomainSeen, got %v", state)
	}
}

func TestAnswerOneChasesCNAMEForAQuery(t *testing.T) {
	z := newTestZone(t)
	var answer zone.ZoneAnswer
	var state zone.AnswerState
	answerOne(z, wire.Question{Name: mustName(t, "alias.example.com"), Type: wire.TypeA, Class: wire.ClassIN}, &answer, &state)
	if len(answer.Answers) != 1 {
		t.Fatalf("expected 1 answer (the CNAME record), got %d", len(answer.Answers))
	}
	if answer.Answers[0].Type != wire.TypeCNAME {
		t.Fatalf("expected CNAME answer from chase, got %v", answer.Answers[0].Type)
	}
}

func TestAnswerQueryAddsAdditionalForMX(t *testing.T) {
	z := newTestZone(t)
	answers, _, additional, authoritative, state := answerQuery(z, []wire.Question{
		{Name: mustName(t, "mail.example.com"), Type: wire.TypeMX, Class: wire.ClassIN},
	})
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(answers))
	}
	if len(additional) != 1 {
		t.Fatalf("expected 1 additional record (the MX exchange's A), got %d", len(additional))
	}
	if !authoritative {
		t.Fatalf("expected authoritative answer")
	}
	if state != zone.AnswerDomainSeen {
		t.Fatalf("expected DomainSeen, got %v", state)
	}
}

func TestAnswerQueryAddsSOAToAuthorityOnEmptyAnswer(t *testing.T) {
	z := newTestZone(t)
	_, nameservers, _, authoritative, state := answerQuery(z, []wire.Question{
		{Name: mustName(t, "www.example.com"), Type: wire.TypeAAAA, Class: wire.ClassIN},
	})
	if !authoritative {
		t.Fatalf("expected authoritative answer")
	}
	if state != zone.AnswerDomainSeen {
		t.Fatalf("expected DomainSeen (name exists, just not this type), got %v", state)
	}
	if len(nameservers) != 1 || nameservers[0].Type != wire.TypeSOA {
		t.Fatalf("expected SOA in authority section, got %v", nameservers)
	}
}

func TestAnswerQueryUnknownNameGetsNoAuthoritySOA(t *testing.T) {
	z := newTestZone(t)
	_, nameservers, _, _, state := answerQuery(z, []wire.Question{
		{Name: mustName(t, "nonexistent.example.com"), Type: wire.TypeA, Class: wire.ClassIN},
	})
	if state != zone.AnswerNone {
		t.Fatalf("expected AnswerNone, got %v", state)
	}
	if len(nameservers) != 0 {
		t.Fatalf("expected no authority records for an unrecognized name, got %v", nameservers)
	}
}
