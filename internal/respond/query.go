package respond

import (
	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

// serverVersion is returned for a TXT query of version.bind, the
// conventional BIND-compatible way an operator probes a server's version.
const serverVersion = "adnsd-1"

var versionBindName = wire.MustParseName("version.bind")

// answerOne resolves a single question against z, appending matches to
// answer and folding the resulting AnswerState into state (never lowering
// it, since a caller may ask several questions against the same state).
//
// A query for version.bind/TXT is answered directly without consulting z.
// Otherwise z.Answer does the real work; if the question was A and
// nothing was found, this chases a single CNAME hop by re-querying the
// same name for its CNAME record, matching the "synthesize the A lookup
// through one alias" behavior resolvers expect from an authoritative
// server that only ever stores one CNAME indirection.
func answerOne(z *zone.Zone, question wire.Question, answer *zone.ZoneAnswer, state *zone.AnswerState) {
	start := len(answer.Answers)
	if question.Name.Equal(versionBindName) && question.Type == wire.TypeTXT {
		answer.Answers = append(answer.Answers, wire.NewRecord(versionBindName, 3600, wire.TXTData{Strings: []string{serverVersion}}))
		*state = maxAnswerState(*state, zone.AnswerDomainSeen)
		return
	}

	substate := z.Answer(nil, wire.Name{}, question, answer)
	*state = maxAnswerState(*state, substate)

	if question.Type == wire.TypeA && len(answer.Answers) == start {
		cnameQuestion := question
		cnameQuestion.Type = wire.TypeCNAME
		answerOne(z, cnameQuestion, answer, state)
	}
}

func maxAnswerState(a, b zone.AnswerState) zone.AnswerState {
	if b > a {
		return b
	}
	return a
}

// extraResolveTarget returns the name a record's data points at for
// additional-section glue purposes (CNAME target, MX exchange, SRV
// target), or the zero Name and false if r's type carries no such target.
func extraResolveTarget(r wire.Record) (wire.Name, bool) {
	switch data := r.Data.(type) {
	case wire.CNAMEData:
		return data.Target, true
	case wire.MXData:
		return data.Exchange, true
	case wire.SRVData:
		return data.Target, true
	default:
		return wire.Name{}, false
	}
}

// answerQuery answers every question in packet.Questions against z,
// producing the full set of answer and additional records plus whatever
// authority/SOA records an authoritative empty answer requires.
//
// It mirrors RFC 1035 §4.3.2's additional-section glue resolution for the
// record types that commonly need it (CNAME, MX, SRV) and appends the
// zone's SOA to the authority section when an authoritative answer came
// back with no records for a name the zone tree did recognize (the
// "negative answer, but this name/zone is ours" case) per RFC 2308 §3.
func answerQuery(z *zone.Zone, questions []wire.Question) (answers, nameservers, additional []wire.Record, authoritative bool, state zone.AnswerState) {
	for _, question := range questions {
		var answer zone.ZoneAnswer
		answerOne(z, question, &answer, &state)
		if answer.IsAuthoritative {
			authoritative = true
		}
		answers = append(answers, answer.Answers...)
	}

	for _, rec := range answers {
		target, ok := extraResolveTarget(rec)
		if !ok {
			continue
		}
		var answer zone.ZoneAnswer
		answerOne(z, wire.Question{Name: target, Type: wire.TypeA, Class: wire.ClassIN}, &answer, &state)
		if answer.IsAuthoritative {
			authoritative = true
		}
		additional = append(additional, answer.Answers...)
	}

	if authoritative && len(answers) == 0 && state == zone.AnswerDomainSeen {
		for _, question := range questions {
			// An SOA is only answered at a zone apex, so walk up the queried
			// name until the closest enclosing apex yields one.
			segments := question.Name.Segments()
			for i := 0; i <= len(segments) && len(nameservers) == 0; i++ {
				apex, err := wire.NameFromSegments(segments[i:])
				if err != nil {
					break
				}
				var answer zone.ZoneAnswer
				answerOne(z, wire.Question{Name: apex, Type: wire.TypeSOA, Class: wire.ClassIN}, &answer, &state)
				nameservers = append(nameservers, answer.Answers...)
			}
			if len(nameservers) > 0 {
				break
			}
		}
	}

	return answers, nameservers, additional, authoritative, state
}
