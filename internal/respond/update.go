package respond

import (
	"sort"

	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

// updateError is why an RFC 2136 UPDATE request was rejected, before any
// action it described was applied. Each variant maps to a specific
// response RCODE in rcode below.
type updateError int

const (
	errBadZoneCount updateError = iota
	errMalformedZone
	errRecordNotZoned
	errNameNotFound
	errRRSetNotFound
	errFormatError
	errNameFound
	errRRSetFound
)

func (e updateError) Error() string {
	switch e {
	case errBadZoneCount:
		return "unexpected number of zones, expected 1"
	case errMalformedZone:
		return "malformed zone declaration (bad type or class)"
	case errRecordNotZoned:
		return "an update record was not in the zone"
	case errNameNotFound:
		return "prerequisite name not found"
	case errRRSetNotFound:
		return "prerequisite rrset not found"
	case errFormatError:
		return "format error"
	case errNameFound:
		return "prerequisite name found"
	case errRRSetFound:
		return "prerequisite rrset found"
	default:
		return "unknown update error"
	}
}

// rcode maps an updateError to the RCODE the UPDATE response should carry.
func (e updateError) rcode() wire.ResponseCode {
	switch e {
	case errBadZoneCount, errMalformedZone, errFormatError, errRecordNotZoned:
		return wire.FormatError
	case errNameNotFound:
		return wire.NXDomain
	case errRRSetNotFound:
		return wire.NXRRSet
	case errNameFound:
		return wire.YXDomain
	case errRRSetFound:
		return wire.YXRRSet
	default:
		return wire.ServerFailure
	}
}

// planUpdate validates packet as an RFC 2136 UPDATE against root and
// translates it into a zone.ZoneUpdate, or returns the updateError that
// should be reported instead.
//
// packet's sections are reinterpreted per RFC 2136 §3: the single question
// names the zone and its class, Answers carries prerequisites, and
// Nameservers carries the update records themselves.
func planUpdate(root *zone.Zone, packet wire.Packet) (zone.ZoneUpdate, error) {
	if len(packet.Questions) != 1 {
		return zone.ZoneUpdate{}, errBadZoneCount
	}
	question := packet.Questions[0]
	if question.Type != wire.TypeSOA || question.Class != root.Class {
		return zone.ZoneUpdate{}, errMalformedZone
	}

	update := zone.ZoneUpdate{ZoneName: question.Name}

	target := root
	if !question.Name.IsRoot() {
		if sub, ok := root.ChildZone(question.Name); ok {
			target = sub
		} else {
			target = zone.New()
		}
	}

	if err := checkPrerequisites(target, packet.Answers); err != nil {
		return zone.ZoneUpdate{}, err
	}

	// A record is in-zone when its name ends with the zone's own name; the
	// root zone has no such restriction, since every name is beneath it.
	if err := prescanUpdates(question.Name, packet.Nameservers, target.Class); err != nil {
		return zone.ZoneUpdate{}, err
	}

	for _, rec := range packet.Nameservers {
		switch {
		case rec.Class == target.Class:
			update.Actions = append(update.Actions, zone.AddRecord(rec))
		case rec.Class == wire.ClassALL:
			var typ *wire.Type
			if rec.Type != wire.TypeALL {
				t := rec.Type
				typ = &t
			}
			update.Actions = append(update.Actions, zone.DeleteRecords{Name: rec.Name, Type: typ})
		case rec.Class == wire.ClassNONE:
			update.Actions = append(update.Actions, zone.DeleteRecord{Name: rec.Name, Data: rec.Data})
		default:
			return zone.ZoneUpdate{}, errFormatError
		}
	}

	return update, nil
}

// checkPrerequisites evaluates the RFC 2136 §3.2 prerequisite table against
// prereqs (packet.Answers), using target's current record set.
func checkPrerequisites(target *zone.Zone, prereqs []wire.Record) error {
	var wanted []recordKey

	for _, prereq := range prereqs {
		switch {
		case prereq.Class == wire.ClassALL && prereq.Type == wire.TypeALL:
			if !anyRecordNamed(target, prereq.Name) {
				return errNameNotFound
			}
			continue
		case prereq.Class == wire.ClassALL:
			if !anyRecordNamedType(target, prereq.Name, prereq.Type) {
				return errRRSetNotFound
			}
			continue
		case prereq.Class == wire.ClassNONE && prereq.Type == wire.TypeALL:
			if anyRecordNamed(target, prereq.Name) {
				return errNameFound
			}
			continue
		case prereq.Class == wire.ClassNONE:
			if anyRecordNamedType(target, prereq.Name, prereq.Type) {
				return errRRSetFound
			}
			continue
		case prereq.Class == target.Class:
			if prereq.TTL != 0 {
				return errFormatError
			}
			wanted = append(wanted, recordKey{typ: prereq.Type, name: prereq.Name.String(), data: prereq.Data.String()})
			continue
		}
		if prereq.TTL != 0 || !wire.RDataIsEmpty(prereq.Data) {
			return errFormatError
		}
	}

	if len(wanted) == 0 {
		return nil
	}
	sort.Slice(wanted, func(i, j int) bool {
		return recordKeyLess(wanted[i], wanted[j])
	})

	var have []recordKey
	for _, r := range target.Records {
		have = append(have, recordKey{typ: r.Type, name: r.Name.String(), data: r.Data.String()})
	}
	sort.Slice(have, func(i, j int) bool {
		return recordKeyLess(have[i], have[j])
	})

	if len(wanted) != len(have) {
		return errRRSetNotFound
	}
	for i := range wanted {
		if wanted[i] != have[i] {
			return errRRSetNotFound
		}
	}
	return nil
}

type recordKey struct {
	typ  wire.Type
	name string
	data string
}

func recordKeyLess(a, b recordKey) bool {
	if a.typ != b.typ {
		return a.typ < b.typ
	}
	if a.name != b.name {
		return a.name < b.name
	}
	return a.data < b.data
}

func anyRecordNamed(z *zone.Zone, name wire.Name) bool {
	for _, r := range z.Records {
		if r.Name.Equal(name) {
			return true
		}
	}
	return false
}

func anyRecordNamedType(z *zone.Zone, name wire.Name, typ wire.Type) bool {
	for _, r := range z.Records {
		if r.Name.Equal(name) && r.Type == typ {
			return true
		}
	}
	return false
}

// prescanUpdates validates every update record before any of them are
// applied, per RFC 2136 §3.4.1. zoneName is the name being updated (the
// zero Name for the root zone, which has no in-zone restriction to check).
func prescanUpdates(zoneName wire.Name, updates []wire.Record, zoneClass wire.Class) error {
	for _, rec := range updates {
		if !zoneName.IsRoot() && !rec.Name.EndsWith(zoneName) {
			return errRecordNotZoned
		}
		switch {
		case rec.Class == zoneClass:
			if rec.Type.IsQuestionType() {
				return errFormatError
			}
		case rec.Class == wire.ClassALL:
			if rec.TTL != 0 || !wire.RDataIsEmpty(rec.Data) || (rec.Type.IsQuestionType() && rec.Type != wire.TypeALL) {
				return errFormatError
			}
		case rec.Class == wire.ClassNONE:
			if rec.TTL != 0 || rec.Type.IsQuestionType() {
				return errFormatError
			}
		default:
			return errFormatError
		}
	}
	return nil
}
