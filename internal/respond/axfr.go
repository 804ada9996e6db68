package respond

import (
	log "github.com/sirupsen/logrus"

	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

// axfrChunkSize is how many records each AXFR response message after the
// first carries, matching the reference implementation this package is
// adapted from (RFC 5936 leaves the exact grouping up to the server).
const axfrChunkSize = 8

// axfrQuestion reports whether packet is a well-formed AXFR request (RFC
// 1995 §2): exactly one question, empty answer/authority sections, qtype
// AXFR, qclass IN. It returns the requested zone name.
func axfrQuestion(packet wire.Packet) (wire.Name, bool) {
	if len(packet.Questions) != 1 || len(packet.Answers) != 0 || len(packet.Nameservers) != 0 {
		return wire.Name{}, false
	}
	q := packet.Questions[0]
	if q.Type != wire.TypeAXFR || q.Class != wire.ClassIN {
		return wire.Name{}, false
	}
	return q.Name, true
}

// axfrResponses builds the message sequence for a full zone transfer of
// axfrName out of root: an initial SOA-only message, the zone's records in
// chunks of axfrChunkSize, and a closing message repeating the SOA (RFC
// 5936 §2.2).
func axfrResponses(root *zone.Zone, axfrName wire.Name, base wire.Packet) []wire.Packet {
	target := root
	if !axfrName.IsRoot() {
		sub, ok := root.ChildZone(axfrName)
		if !ok {
			base.Header.RCode = wire.NXDomain
			return []wire.Packet{base}
		}
		target = sub
	}

	var soaAnswer zone.ZoneAnswer
	var state zone.AnswerState
	answerOne(root, wire.Question{Name: axfrName, Type: wire.TypeSOA, Class: wire.ClassIN}, &soaAnswer, &state)
	if len(soaAnswer.Answers) == 0 {
		log.Warnf("axfr: no SOA found for %s, refusing transfer", axfrName)
		base.Header.RCode = wire.ServerFailure
		return []wire.Packet{base}
	}
	soa := soaAnswer.Answers[len(soaAnswer.Answers)-1]

	var out []wire.Packet

	first := base
	first.Answers = []wire.Record{soa}
	out = append(out, first)

	base.Questions = nil
	for i := 0; i < len(target.Records); i += axfrChunkSize {
		end := i + axfrChunkSize
		if end > len(target.Records) {
			end = len(target.Records)
		}
		chunk := base
		chunk.Answers = append([]wire.Record(nil), target.Records[i:end]...)
		out = append(out, chunk)
	}

	last := base
	last.Answers = []wire.Record{soa}
	out = append(out, last)

	return out
}
