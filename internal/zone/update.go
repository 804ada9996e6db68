package zone

import (
	"fmt"

	"github.com/nkovacs/adnsd/internal/wire"
)

// recordDataEqual compares RDATA by its text form rather than Go's ==,
// since several concrete RecordData types (TXT, SSHFP, CERT, TSIG, raw
// OtherData) hold slices and are not comparable with ==.
func recordDataEqual(a, b wire.RecordData) bool {
	if a.DNSType() != b.DNSType() {
		return false
	}
	as, aok := a.(fmt.Stringer)
	bs, bok := b.(fmt.Stringer)
	if aok && bok {
		return as.String() == bs.String()
	}
	return a == b
}

// minTTL is the floor AddRecord clamps incoming TTLs to.
const minTTL = 60

// ZoneUpdate is a batch of actions destined for the zone rooted at
// ZoneName (the root zone if ZoneName is empty), as produced by RFC 2136
// UPDATE translation or a provider's own API.
type ZoneUpdate struct {
	ZoneName wire.Name
	Actions  []ZoneUpdateAction
}

// ApplyTo applies every action in u to the zone rooted at u.ZoneName under
// root, creating that sub-zone if it doesn't exist yet.
func (u ZoneUpdate) ApplyTo(root *Zone) {
	target := root
	if !u.ZoneName.IsRoot() {
		target = root.EnsureChild(u.ZoneName)
	}
	for _, action := range u.Actions {
		action.ApplyTo(target, u.ZoneName)
	}
}

// ZoneUpdateAction is one mutation of a zone's record set. Implementations
// are DeleteRecords, DeleteRecord, and AddRecord.
type ZoneUpdateAction interface {
	ApplyTo(z *Zone, zoneName wire.Name)
}

// DeleteRecords removes every record at Name, or only those of the given
// Type if Type is non-nil. At the zone apex, SOA and NS are protected:
// DeleteRecords(apex, nil) leaves them in place, and
// DeleteRecords(apex, &SOA-or-NS) is a no-op.
type DeleteRecords struct {
	Name wire.Name
	Type *wire.Type
}

// ApplyTo implements ZoneUpdateAction.
func (a DeleteRecords) ApplyTo(z *Zone, zoneName wire.Name) {
	atApex := a.Name.Equal(zoneName)

	if a.Type == nil {
		if atApex {
			z.Records = filterRecords(z.Records, func(r wire.Record) bool {
				return !r.Name.Equal(a.Name) || r.Type == wire.TypeSOA || r.Type == wire.TypeNS
			})
			return
		}
		z.Records = filterRecords(z.Records, func(r wire.Record) bool {
			return !r.Name.Equal(a.Name)
		})
		return
	}

	if atApex && (*a.Type == wire.TypeSOA || *a.Type == wire.TypeNS) {
		return
	}
	z.Records = filterRecords(z.Records, func(r wire.Record) bool {
		return !r.Name.Equal(a.Name) || r.Type != *a.Type
	})
}

// DeleteRecord removes exactly one record (matched by name, type, and
// exact RDATA equality). At the zone apex, SOA can never be deleted this
// way, and the last remaining NS can't be deleted either.
type DeleteRecord struct {
	Name wire.Name
	Data wire.RecordData
}

// ApplyTo implements ZoneUpdateAction.
func (a DeleteRecord) ApplyTo(z *Zone, zoneName wire.Name) {
	typ := a.Data.DNSType()
	atApex := a.Name.Equal(zoneName)

	if atApex && typ == wire.TypeSOA {
		return
	}
	if atApex && typ == wire.TypeNS {
		count := 0
		for _, r := range z.Records {
			if r.Name.Equal(zoneName) && r.Type == wire.TypeNS {
				count++
			}
		}
		if count <= 1 {
			return
		}
	}

	z.Records = filterRecords(z.Records, func(r wire.Record) bool {
		return !(r.Name.Equal(a.Name) && r.Type == typ && recordDataEqual(r.Data, a.Data))
	})
}

// AddRecord adds (or replaces an existing matching record with) Record.
//
// Enforced invariants, in order: TTL floor of 60 seconds; CNAME
// exclusivity (a name holds either a CNAME or any mix of other types, never
// both), scoped to the record's own owner name; SOA monotonicity, where
// an add is a no-op if a strictly greater serial already exists at that
// name. A matching existing record (same name and type) is replaced in
// place when the type is CNAME or SOA (which have exactly one instance
// per name) or when its data is byte-for-byte identical; otherwise the new
// record is appended as an additional member of the RRset.
type AddRecord wire.Record

// ApplyTo implements ZoneUpdateAction.
func (a AddRecord) ApplyTo(z *Zone, zoneName wire.Name) {
	record := wire.Record(a)
	if record.TTL < minTTL {
		record.TTL = minTTL
	}

	if record.Type == wire.TypeCNAME {
		for _, existing := range z.Records {
			if existing.Name.Equal(record.Name) && existing.Type != wire.TypeCNAME {
				return
			}
		}
	} else {
		for _, existing := range z.Records {
			if existing.Name.Equal(record.Name) && existing.Type == wire.TypeCNAME {
				return
			}
		}
	}

	if record.Type == wire.TypeSOA {
		newSOA, ok := record.Data.(wire.SOAData)
		if ok {
			for _, existing := range z.Records {
				if existing.Name.Equal(record.Name) && existing.Type == wire.TypeSOA {
					if existingSOA, ok := existing.Data.(wire.SOAData); ok && existingSOA.Serial > newSOA.Serial {
						return
					}
				}
			}
		}
	}

	for i, existing := range z.Records {
		if !existing.Name.Equal(record.Name) || existing.Type != record.Type {
			continue
		}
		if record.Type == wire.TypeCNAME || record.Type == wire.TypeSOA || recordDataEqual(existing.Data, record.Data) {
			z.Records[i] = record
			return
		}
	}

	z.Records = append(z.Records, record)
}

func filterRecords(records []wire.Record, keep func(wire.Record) bool) []wire.Record {
	out := records[:0]
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
