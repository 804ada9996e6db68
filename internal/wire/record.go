package wire

import "fmt"

// Record is a single resource record, as found in a packet's answer,
// authority (nameserver), or additional section (RFC 1035 §4.1.3).
type Record struct {
	Name  Name
	Type  Type
	Class Class
	TTL   uint32
	Data  RecordData
}

// NewRecord builds a Record with class IN, deriving Type from the data's
// own DNSType.
func NewRecord(name Name, ttl uint32, data RecordData) Record {
	return Record{Name: name, Type: data.DNSType(), Class: ClassIN, TTL: ttl, Data: data}
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %d %s", r.Name, r.Type, r.TTL, r.Data)
}

func parseRecord(c *DeserializeContext) (Record, error) {
	name, err := c.ReadName()
	if err != nil {
		return Record{}, err
	}
	typ, err := c.ReadU16()
	if err != nil {
		return Record{}, err
	}
	class, err := c.ReadU16()
	if err != nil {
		return Record{}, err
	}
	ttl, err := c.ReadU32()
	if err != nil {
		return Record{}, err
	}
	rdlength, err := c.ReadU16()
	if err != nil {
		return Record{}, err
	}
	var data RecordData
	err = c.Restrict(int(rdlength), func() error {
		data = parseRecordDataInfallible(c, Type(typ))
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return Record{Name: name, Type: Type(typ), Class: Class(class), TTL: ttl, Data: data}, nil
}

// SerializeInto appends r's wire encoding to an in-progress serialization
// context. Exposed for the tsig package, which needs to hand-append a TSIG
// pseudo-record after a packet's own sections are already framed.
func (r Record) SerializeInto(c *SerializeContext) {
	r.serialize(c)
}

func (r Record) serialize(c *SerializeContext) {
	c.WriteName(r.Name)
	c.WriteBlob([]byte{byte(r.Type >> 8), byte(r.Type)})
	c.WriteBlob([]byte{byte(r.Class >> 8), byte(r.Class)})
	c.WriteBlob([]byte{byte(r.TTL >> 24), byte(r.TTL >> 16), byte(r.TTL >> 8), byte(r.TTL)})
	c.CaptureLenU16(func() {
		r.Data.serialize(c)
	})
}
