package wire

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// RecordDataParseError reports a failure to parse a record's presentation
// (zone-file / text) form.
type RecordDataParseError struct {
	Type    Type
	Input   string
	Message string
}

func (e *RecordDataParseError) Error() string {
	return fmt.Sprintf("wire: invalid %s data %q: %s", e.Type, e.Input, e.Message)
}

// needsEscape reports whether arg must be quoted when rendered in text form:
// it contains a double quote, a backslash, or whitespace.
func needsEscape(s string) bool {
	for _, r := range s {
		if r == '"' || r == '\\' || isASCIISpace(r) {
			return true
		}
	}
	return false
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

func escapeArg(s string) string {
	if !needsEscape(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' || isASCIISpace(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// splitArgs tokenizes a presentation-form RDATA line, honoring double-quote
// grouping and backslash escaping, matching the quoting rules escapeArg
// produces.
func splitArgs(input string) ([]string, error) {
	var out []string
	var current strings.Builder
	escaped := false
	quoted := false
	haveCurrent := false

	flush := func() {
		if haveCurrent {
			out = append(out, current.String())
			current.Reset()
			haveCurrent = false
		}
	}

	for _, r := range strings.TrimSpace(input) {
		switch {
		case escaped:
			current.WriteRune(r)
			haveCurrent = true
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"' && !quoted:
			flush()
			quoted = true
		case r == '"' && quoted:
			out = append(out, current.String())
			current.Reset()
			haveCurrent = false
			quoted = false
		case isASCIISpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
			haveCurrent = true
		}
	}
	if quoted || escaped {
		return nil, fmt.Errorf("malformed quoting or trailing escape")
	}
	flush()
	return out, nil
}

func (d AData) String() string {
	return net.IP(d.Addr[:]).String()
}

func (d NSData) String() string { return d.NSDName.String() }

func (d CNAMEData) String() string { return d.Target.String() }

func (d SOAData) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d",
		d.MName, d.RName, d.Serial, d.Refresh, d.Retry, d.Expire, d.Minimum)
}

func (d PTRData) String() string { return d.PTRDName.String() }

func (d HINFOData) String() string {
	return fmt.Sprintf("%s %s", escapeArg(d.CPU), escapeArg(d.OS))
}

func (d MXData) String() string {
	return fmt.Sprintf("%d %s", d.Preference, d.Exchange)
}

func (d TXTData) String() string {
	parts := make([]string, len(d.Strings))
	for i, s := range d.Strings {
		parts[i] = escapeArg(s)
	}
	return strings.Join(parts, " ")
}

func (d AAAAData) String() string {
	return net.IP(d.Addr[:]).String()
}

func (d LOCData) String() string {
	return fmt.Sprintf("%d %d %d %d %d %d %d",
		d.Version, d.Size, d.HorizPre, d.VertPre, d.Latitude, d.Longitude, d.Altitude)
}

func (d SRVData) String() string {
	return fmt.Sprintf("%d %d %d %s", d.Priority, d.Weight, d.Port, d.Target)
}

func (d CERTData) String() string {
	return fmt.Sprintf("%d %d %d %s", d.CertType, d.KeyTag, d.Algorithm, hex.EncodeToString(d.Cert))
}

func (d DNAMEData) String() string { return d.Target.String() }

func (d SSHFPData) String() string {
	return fmt.Sprintf("%d %d %s", d.Algorithm, d.FPType, hex.EncodeToString(d.Fingerprint))
}

func (d TSIGData) String() string {
	return fmt.Sprintf("%s %d %d %s %d %s %s",
		d.Algorithm, d.TimeSigned, d.Fudge, hex.EncodeToString(d.MAC), d.OriginalID, d.Error, hex.EncodeToString(d.OtherData))
}

func (d URIData) String() string {
	return fmt.Sprintf("%d %d %s", d.Priority, d.Weight, d.Target)
}

func (d OtherData) String() string {
	return hex.EncodeToString(d.Bytes)
}

// ParseRecordDataText parses the presentation (zone-file) form of an
// RDATA line for the given type. TSIG data has no text form: it only ever
// appears in already-decoded wire traffic.
func ParseRecordDataText(typ Type, input string) (RecordData, error) {
	args, err := splitArgs(input)
	if err != nil {
		return nil, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
	}
	if len(args) == 0 {
		return nil, &RecordDataParseError{Type: typ, Input: input, Message: "no arguments"}
	}
	first := args[0]

	arg := func(i int) (string, error) {
		if i >= len(args) {
			return "", &RecordDataParseError{Type: typ, Input: input, Message: "missing argument"}
		}
		return args[i], nil
	}
	parseU8 := func(i int) (uint8, error) {
		s, err := arg(i)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return 0, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return uint8(v), nil
	}
	parseU16 := func(i int) (uint16, error) {
		s, err := arg(i)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return uint16(v), nil
	}
	parseU32 := func(i int) (uint32, error) {
		s, err := arg(i)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return uint32(v), nil
	}
	parseI32 := func(i int) (int32, error) {
		s, err := arg(i)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return int32(v), nil
	}
	parseName := func(s string) (Name, error) {
		n, err := ParseName(s)
		if err != nil {
			return Name{}, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return n, nil
	}

	switch typ {
	case TypeA:
		ip := net.ParseIP(first)
		if ip == nil {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: "invalid IPv4 address"}
		}
		b, ok := ipv4Bytes(ip)
		if !ok {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: "not an IPv4 address"}
		}
		return AData{Addr: b}, nil
	case TypeNS:
		n, err := parseName(first)
		if err != nil {
			return nil, err
		}
		return NSData{NSDName: n}, nil
	case TypeCNAME:
		n, err := parseName(first)
		if err != nil {
			return nil, err
		}
		return CNAMEData{Target: n}, nil
	case TypeSOA:
		mname, err := parseName(first)
		if err != nil {
			return nil, err
		}
		rnameS, err := arg(1)
		if err != nil {
			return nil, err
		}
		rname, err := parseName(rnameS)
		if err != nil {
			return nil, err
		}
		serial, err := parseU32(2)
		if err != nil {
			return nil, err
		}
		refresh, err := parseU32(3)
		if err != nil {
			return nil, err
		}
		retry, err := parseU32(4)
		if err != nil {
			return nil, err
		}
		expire, err := parseU32(5)
		if err != nil {
			return nil, err
		}
		minimum, err := parseU32(6)
		if err != nil {
			return nil, err
		}
		return SOAData{MName: mname, RName: rname, Serial: serial, Refresh: refresh, Retry: retry, Expire: expire, Minimum: minimum}, nil
	case TypePTR:
		n, err := parseName(first)
		if err != nil {
			return nil, err
		}
		return PTRData{PTRDName: n}, nil
	case TypeHINFO:
		os, err := arg(1)
		if err != nil {
			return nil, err
		}
		return HINFOData{CPU: first, OS: os}, nil
	case TypeMX:
		pref, err := parseU16(0)
		if err != nil {
			return nil, err
		}
		exchS, err := arg(1)
		if err != nil {
			return nil, err
		}
		exch, err := parseName(exchS)
		if err != nil {
			return nil, err
		}
		return MXData{Preference: pref, Exchange: exch}, nil
	case TypeTXT:
		return TXTData{Strings: []string{strings.Join(args, " ")}}, nil
	case TypeAAAA:
		ip := net.ParseIP(first)
		if ip == nil {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: "invalid IPv6 address"}
		}
		b, ok := ipv6Bytes(ip)
		if !ok {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: "not an IPv6 address"}
		}
		return AAAAData{Addr: b}, nil
	case TypeLOC:
		version, err := parseU8(0)
		if err != nil {
			return nil, err
		}
		size, err := parseU8(1)
		if err != nil {
			return nil, err
		}
		horiz, err := parseU8(2)
		if err != nil {
			return nil, err
		}
		vert, err := parseU8(3)
		if err != nil {
			return nil, err
		}
		lat, err := parseI32(4)
		if err != nil {
			return nil, err
		}
		long, err := parseI32(5)
		if err != nil {
			return nil, err
		}
		alt, err := parseI32(6)
		if err != nil {
			return nil, err
		}
		return LOCData{Version: version, Size: size, HorizPre: horiz, VertPre: vert, Latitude: lat, Longitude: long, Altitude: alt}, nil
	case TypeSRV:
		pri, err := parseU16(0)
		if err != nil {
			return nil, err
		}
		weight, err := parseU16(1)
		if err != nil {
			return nil, err
		}
		port, err := parseU16(2)
		if err != nil {
			return nil, err
		}
		targetS, err := arg(3)
		if err != nil {
			return nil, err
		}
		target, err := parseName(targetS)
		if err != nil {
			return nil, err
		}
		return SRVData{Priority: pri, Weight: weight, Port: port, Target: target}, nil
	case TypeCERT:
		certType, err := parseU16(0)
		if err != nil {
			return nil, err
		}
		keyTag, err := parseU16(1)
		if err != nil {
			return nil, err
		}
		algo, err := parseU8(2)
		if err != nil {
			return nil, err
		}
		hexS, err := arg(3)
		if err != nil {
			return nil, err
		}
		data, err := hex.DecodeString(hexS)
		if err != nil {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return CERTData{CertType: certType, KeyTag: keyTag, Algorithm: algo, Cert: data}, nil
	case TypeDNAME:
		n, err := parseName(first)
		if err != nil {
			return nil, err
		}
		return DNAMEData{Target: n}, nil
	case TypeSSHFP:
		algo, err := parseU8(0)
		if err != nil {
			return nil, err
		}
		fpType, err := parseU8(1)
		if err != nil {
			return nil, err
		}
		hexS, err := arg(2)
		if err != nil {
			return nil, err
		}
		fp, err := hex.DecodeString(hexS)
		if err != nil {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return SSHFPData{Algorithm: algo, FPType: fpType, Fingerprint: fp}, nil
	case TypeURI:
		pri, err := parseU16(0)
		if err != nil {
			return nil, err
		}
		weight, err := parseU16(1)
		if err != nil {
			return nil, err
		}
		target, err := arg(2)
		if err != nil {
			return nil, err
		}
		return URIData{Priority: pri, Weight: weight, Target: target}, nil
	default:
		data, err := hex.DecodeString(first)
		if err != nil {
			return nil, &RecordDataParseError{Type: typ, Input: input, Message: err.Error()}
		}
		return OtherData{Type: typ, Bytes: data}, nil
	}
}
