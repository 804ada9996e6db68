// Package zone holds the in-memory authoritative zone model: the record
// set a zone answers for, its delegated sub-zones, and the query-answering
// algorithm that walks that tree. Zones are immutable snapshots; updates
// produce a new Zone (or a mutated copy held by a provider) rather than
// mutating one a handler might be reading concurrently.
package zone

import (
	"github.com/nkovacs/adnsd/internal/wire"
)

// TsigKey is a TSIG key configured on a zone: the secret and which
// algorithm it is expected to be used with.
type TsigKey struct {
	Secret    []byte
	Algorithm wire.Name
}

// childZone pairs a delegated sub-zone with the name it is rooted at.
// Stored as a slice rather than a map so that iteration order (used by
// Answer's EndsWith recursion) is stable and matches insertion order,
// mirroring the ordered map the reference implementation this package is
// adapted from uses for the same purpose. The YAML document holds sub-zones
// in a map, so this order is not preserved through MarshalYAML/ParseYAML.
type childZone struct {
	name wire.Name
	zone *Zone
}

// Zone is a single node of the authority tree: the records it owns
// directly, plus any sub-zones delegated beneath it.
type Zone struct {
	Records     []wire.Record
	SOA         *wire.SOAData
	Nameservers []wire.Name
	TsigKeys    map[string]TsigKey
	// Authoritative controls the AA bit set on answers served from this
	// zone. Defaults to true; a non-authoritative zone (a cache or relay
	// stub) would set this false.
	Authoritative bool
	Class         wire.Class
	AllowMD5Tsig  bool

	children []*childZone
}

// New returns an authoritative, empty zone with class IN.
func New() *Zone {
	return &Zone{Authoritative: true, Class: wire.ClassIN}
}

// ChildNames returns the names of this zone's direct sub-zones, in
// insertion order.
func (z *Zone) ChildNames() []wire.Name {
	out := make([]wire.Name, len(z.children))
	for i, c := range z.children {
		out[i] = c.name
	}
	return out
}

// Clone returns a deep copy of z: its own record list, sub-zone tree, and
// TSIG key table are all independent of the original, so mutating the
// clone (e.g. via MergeFrom or an update) never affects z.
func (z *Zone) Clone() *Zone {
	clone := &Zone{
		Records:       append([]wire.Record(nil), z.Records...),
		Nameservers:   append([]wire.Name(nil), z.Nameservers...),
		Authoritative: z.Authoritative,
		Class:         z.Class,
		AllowMD5Tsig:  z.AllowMD5Tsig,
	}
	if z.SOA != nil {
		soa := *z.SOA
		clone.SOA = &soa
	}
	if z.TsigKeys != nil {
		clone.TsigKeys = make(map[string]TsigKey, len(z.TsigKeys))
		for k, v := range z.TsigKeys {
			clone.TsigKeys[k] = v
		}
	}
	for _, c := range z.children {
		clone.children = append(clone.children, &childZone{name: c.name, zone: c.zone.Clone()})
	}
	return clone
}

// ChildZone returns the sub-zone delegated at name, if any.
func (z *Zone) ChildZone(name wire.Name) (*Zone, bool) {
	for _, c := range z.children {
		if c.name.Equal(name) {
			return c.zone, true
		}
	}
	return nil, false
}

// EnsureChild returns the sub-zone delegated at name, creating an empty
// authoritative one if none exists yet.
func (z *Zone) EnsureChild(name wire.Name) *Zone {
	for _, c := range z.children {
		if c.name.Equal(name) {
			return c.zone
		}
	}
	sub := New()
	z.children = append(z.children, &childZone{name: name, zone: sub})
	return sub
}

// SetChild replaces (or adds) the sub-zone delegated at name.
func (z *Zone) SetChild(name wire.Name, sub *Zone) {
	for _, c := range z.children {
		if c.name.Equal(name) {
			c.zone = sub
			return
		}
	}
	z.children = append(z.children, &childZone{name: name, zone: sub})
}

// AnswerState tracks how much a lookup learned about a queried name while
// walking the zone tree: whether the name was ever recognized as existing,
// independent of whether any record of the requested type was found at it.
type AnswerState int

const (
	// AnswerNone means nothing in the walked zones recognized the
	// queried name at all.
	AnswerNone AnswerState = iota
	// AnswerDomainSeen means some zone matched the queried name (at its
	// apex, or via a record pattern), whether or not a record of the
	// requested type was found there.
	AnswerDomainSeen
)

func maxState(a, b AnswerState) AnswerState {
	if b > a {
		return b
	}
	return a
}

// ZoneAnswer accumulates the result of a Zone.Answer walk.
type ZoneAnswer struct {
	IsAuthoritative bool
	Answers         []wire.Record
}

// Answer resolves question against the zone tree rooted at z, whose own
// apex name is zoneName, with parentZone (possibly nil) available for SOA
// and NS fallback at that apex. It appends matching records to
// response.Answers and returns whether the queried name was recognized at
// all.
//
// The SOA and NS special cases at a zone's own apex return immediately
// without also running the general record-matching loop below them: a
// name's SOA/NS handling is exhaustive for those two qtypes at that name.
func (z *Zone) Answer(parentZone *Zone, zoneName wire.Name, question wire.Question, response *ZoneAnswer) AnswerState {
	response.IsAuthoritative = z.Authoritative

	if question.Name.Equal(zoneName) {
		switch question.Type {
		case wire.TypeSOA:
			soa := z.SOA
			if soa == nil && parentZone != nil {
				soa = parentZone.SOA
			}
			if soa != nil {
				response.Answers = append(response.Answers, wire.NewRecord(zoneName, 60, *soa))
			}
			return AnswerDomainSeen
		case wire.TypeNS:
			nameservers := z.Nameservers
			if len(nameservers) == 0 && parentZone != nil {
				nameservers = parentZone.Nameservers
			}
			for _, ns := range nameservers {
				response.Answers = append(response.Answers, wire.NewRecord(zoneName, 3600, wire.NSData{NSDName: ns}))
			}
			return AnswerDomainSeen
		}
	}

	state := AnswerNone
	for _, record := range z.Records {
		if !record.Name.Contains(question.Name) {
			continue
		}
		state = AnswerDomainSeen
		if question.Type != record.Type {
			continue
		}
		match := record
		match.Name = question.Name
		response.Answers = append(response.Answers, match)
	}

	for _, c := range z.children {
		if !question.Name.EndsWith(c.name) {
			continue
		}
		substate := c.zone.Answer(z, c.name, question, response)
		state = maxState(state, substate)
	}

	return state
}

// MergeFrom folds other's records and sub-zones into z: each of other's
// records is applied as an AddRecord action at the root, and each of
// other's sub-zones is merged recursively into an existing sub-zone of
// the same name, or attached wholesale if z has no such sub-zone yet.
func (z *Zone) MergeFrom(other *Zone) {
	for _, r := range other.Records {
		AddRecord(r).ApplyTo(z, wire.Name{})
	}
	for _, c := range other.children {
		if existing, ok := z.ChildZone(c.name); ok {
			existing.MergeFrom(c.zone)
			continue
		}
		z.SetChild(c.name, c.zone)
	}
}
