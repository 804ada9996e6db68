package wire

import "fmt"

// Type is a DNS RR type / QTYPE value (RFC 1035 §3.2, plus the RRs this
// server needs beyond the base RFC).
type Type uint16

const (
	TypeA     Type = 1
	TypeNS    Type = 2
	TypeCNAME Type = 5
	TypeSOA   Type = 6
	TypePTR   Type = 12
	TypeHINFO Type = 13
	TypeMX    Type = 15
	TypeTXT   Type = 16
	TypeAAAA  Type = 28
	TypeLOC   Type = 29
	TypeSRV   Type = 33
	TypeCERT  Type = 37
	TypeDNAME Type = 39
	TypeSSHFP Type = 44
	TypeTSIG  Type = 250

	// Question-only (meta) types: never appear in a stored RRset.
	TypeIXFR Type = 251
	TypeAXFR Type = 252
	TypeALL  Type = 255 // "*", ANY

	TypeURI Type = 256
)

// IsQuestionType reports whether this type only ever appears in the
// question section (IXFR, AXFR, ALL/ANY), not as a stored record type.
func (t Type) IsQuestionType() bool {
	return t >= TypeIXFR && t <= TypeALL
}

var typeNames = map[Type]string{
	TypeA:     "A",
	TypeNS:    "NS",
	TypeCNAME: "CNAME",
	TypeSOA:   "SOA",
	TypePTR:   "PTR",
	TypeHINFO: "HINFO",
	TypeMX:    "MX",
	TypeTXT:   "TXT",
	TypeAAAA:  "AAAA",
	TypeLOC:   "LOC",
	TypeSRV:   "SRV",
	TypeCERT:  "CERT",
	TypeDNAME: "DNAME",
	TypeSSHFP: "SSHFP",
	TypeTSIG:  "TSIG",
	TypeIXFR:  "IXFR",
	TypeAXFR:  "AXFR",
	TypeALL:   "*",
	TypeURI:   "URI",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

var typeByName map[string]Type

func init() {
	typeByName = make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		typeByName[name] = t
	}
	typeByName["ANY"] = TypeALL
}

// ParseTypeText parses a type mnemonic such as "A" or "TXT" as used in
// zone file text. TYPEnnn is also accepted; a bare number is not.
func ParseTypeText(s string) (Type, error) {
	if t, ok := typeByName[s]; ok {
		return t, nil
	}
	var n uint16
	if _, err := fmt.Sscanf(s, "TYPE%d", &n); err == nil {
		return Type(n), nil
	}
	return 0, fmt.Errorf("wire: unknown record type %q", s)
}

// Class is a DNS RR class / QCLASS value (RFC 1035 §3.2.4, plus the
// NONE/ANY pseudo-classes used by RFC 2136 updates).
type Class uint16

const (
	ClassIN   Class = 1
	ClassNONE Class = 254
	ClassALL  Class = 255 // ANY
)

func (c Class) String() string {
	switch c {
	case ClassIN:
		return "IN"
	case ClassNONE:
		return "NONE"
	case ClassALL:
		return "ANY"
	default:
		return fmt.Sprintf("CLASS%d", uint16(c))
	}
}

// ParseClassText parses a class mnemonic ("IN", "NONE", "ANY") as used in
// zone file and UPDATE text.
func ParseClassText(s string) (Class, error) {
	switch s {
	case "IN":
		return ClassIN, nil
	case "NONE":
		return ClassNONE, nil
	case "ANY":
		return ClassALL, nil
	default:
		return 0, fmt.Errorf("wire: unknown class %q", s)
	}
}
