package wire

import (
	"net"
)

// RecordData is the type-specific payload of a resource record (RDATA).
// Each DNS type implements it with a concrete struct rather than a single
// sum type, which is the idiomatic Go rendering of what the reference
// implementation this package is modeled on expresses as a tagged union.
type RecordData interface {
	// DNSType returns the RR type this payload serializes as.
	DNSType() Type
	// String returns the presentation (zone-file) text form of the payload.
	String() string
	serialize(c *SerializeContext)
}

// AData is the RDATA of an A record: a single IPv4 address.
type AData struct{ Addr [4]byte }

func (AData) DNSType() Type { return TypeA }
func (d AData) serialize(c *SerializeContext) {
	c.WriteBlob(d.Addr[:])
}

// NSData is the RDATA of an NS record.
type NSData struct{ NSDName Name }

func (NSData) DNSType() Type { return TypeNS }
func (d NSData) serialize(c *SerializeContext) {
	c.WriteName(d.NSDName)
}

// CNAMEData is the RDATA of a CNAME record.
type CNAMEData struct{ Target Name }

func (CNAMEData) DNSType() Type { return TypeCNAME }
func (d CNAMEData) serialize(c *SerializeContext) {
	c.WriteName(d.Target)
}

// SOAData is the RDATA of an SOA record.
type SOAData struct {
	MName   Name
	RName   Name
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (SOAData) DNSType() Type { return TypeSOA }
func (d SOAData) serialize(c *SerializeContext) {
	c.WriteName(d.MName)
	c.WriteName(d.RName)
	c.WriteBlob(beU32(d.Serial))
	c.WriteBlob(beU32(d.Refresh))
	c.WriteBlob(beU32(d.Retry))
	c.WriteBlob(beU32(d.Expire))
	c.WriteBlob(beU32(d.Minimum))
}

// PTRData is the RDATA of a PTR record.
type PTRData struct{ PTRDName Name }

func (PTRData) DNSType() Type { return TypePTR }
func (d PTRData) serialize(c *SerializeContext) {
	c.WriteName(d.PTRDName)
}

// HINFOData is the RDATA of a HINFO record.
type HINFOData struct {
	CPU string
	OS  string
}

func (HINFOData) DNSType() Type { return TypeHINFO }
func (d HINFOData) serialize(c *SerializeContext) {
	c.WriteCString(d.CPU)
	c.WriteCString(d.OS)
}

// MXData is the RDATA of an MX record.
type MXData struct {
	Preference uint16
	Exchange   Name
}

func (MXData) DNSType() Type { return TypeMX }
func (d MXData) serialize(c *SerializeContext) {
	c.WriteBlob(beU16(d.Preference))
	c.WriteName(d.Exchange)
}

// TXTData is the RDATA of a TXT record: one or more character-strings.
type TXTData struct{ Strings []string }

func (TXTData) DNSType() Type { return TypeTXT }
func (d TXTData) serialize(c *SerializeContext) {
	for _, s := range d.Strings {
		c.WriteCString(s)
	}
}

// AAAAData is the RDATA of an AAAA record: a single IPv6 address.
type AAAAData struct{ Addr [16]byte }

func (AAAAData) DNSType() Type { return TypeAAAA }
func (d AAAAData) serialize(c *SerializeContext) {
	c.WriteBlob(d.Addr[:])
}

// LOCData is the RDATA of a LOC record (RFC 1876). Latitude, longitude,
// and altitude are kept as the raw encoded 32-bit integers, not decoded
// into degrees/meters, matching how this server only relays LOC data
// rather than interpreting it.
type LOCData struct {
	Version   uint8
	Size      uint8
	HorizPre  uint8
	VertPre   uint8
	Latitude  int32
	Longitude int32
	Altitude  int32
}

func (LOCData) DNSType() Type { return TypeLOC }
func (d LOCData) serialize(c *SerializeContext) {
	c.WriteBlob([]byte{d.Version, d.Size, d.HorizPre, d.VertPre})
	c.WriteBlob(beI32(d.Latitude))
	c.WriteBlob(beI32(d.Longitude))
	c.WriteBlob(beI32(d.Altitude))
}

// SRVData is the RDATA of an SRV record (RFC 2782).
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   Name
}

func (SRVData) DNSType() Type { return TypeSRV }
func (d SRVData) serialize(c *SerializeContext) {
	c.WriteBlob(beU16(d.Priority))
	c.WriteBlob(beU16(d.Weight))
	c.WriteBlob(beU16(d.Port))
	c.WriteName(d.Target)
}

// CERTData is the RDATA of a CERT record (RFC 4398).
type CERTData struct {
	CertType  uint16
	KeyTag    uint16
	Algorithm uint8
	Cert      []byte
}

func (CERTData) DNSType() Type { return TypeCERT }
func (d CERTData) serialize(c *SerializeContext) {
	c.WriteBlob(beU16(d.CertType))
	c.WriteBlob(beU16(d.KeyTag))
	c.WriteBlob([]byte{d.Algorithm})
	c.WriteBlob(d.Cert)
}

// DNAMEData is the RDATA of a DNAME record (RFC 6672).
type DNAMEData struct{ Target Name }

func (DNAMEData) DNSType() Type { return TypeDNAME }
func (d DNAMEData) serialize(c *SerializeContext) {
	c.WriteName(d.Target)
}

// SSHFPData is the RDATA of an SSHFP record (RFC 4255).
type SSHFPData struct {
	Algorithm   uint8
	FPType      uint8
	Fingerprint []byte
}

func (SSHFPData) DNSType() Type { return TypeSSHFP }
func (d SSHFPData) serialize(c *SerializeContext) {
	c.WriteBlob([]byte{d.Algorithm, d.FPType})
	c.WriteBlob(d.Fingerprint)
}

// TsigResponseCode is the TSIG-specific extended RCODE (RFC 2845 §2.3),
// carried inside the TSIG RR's RDATA rather than the base header RCODE.
type TsigResponseCode uint16

const (
	TsigNoError TsigResponseCode = 0
	TsigBadSig  TsigResponseCode = 16
	TsigBadKey  TsigResponseCode = 17
	TsigBadTime TsigResponseCode = 18
)

func (t TsigResponseCode) String() string {
	switch t {
	case TsigNoError:
		return "NOERROR"
	case TsigBadSig:
		return "BADSIG"
	case TsigBadKey:
		return "BADKEY"
	case TsigBadTime:
		return "BADTIME"
	default:
		return "UNKNOWN"
	}
}

// TSIGData is the RDATA of a TSIG pseudo-record (RFC 2845 §2.3).
type TSIGData struct {
	Algorithm    Name
	TimeSigned   uint64 // only the low 48 bits are meaningful
	Fudge        uint16
	MAC          []byte
	OriginalID   uint16
	Error        TsigResponseCode
	OtherData    []byte
}

func (TSIGData) DNSType() Type { return TypeTSIG }
func (d TSIGData) serialize(c *SerializeContext) {
	c.WriteName(d.Algorithm)
	tsBytes := beU64(d.TimeSigned)
	c.WriteBlob(tsBytes[2:8])
	c.WriteBlob(beU16(d.Fudge))
	c.WriteBlob(beU16(uint16(len(d.MAC))))
	c.WriteBlob(d.MAC)
	c.WriteBlob(beU16(d.OriginalID))
	c.WriteBlob(beU16(uint16(d.Error)))
	c.WriteBlob(beU16(uint16(len(d.OtherData))))
	c.WriteBlob(d.OtherData)
}

// URIData is the RDATA of a URI record (RFC 7553).
type URIData struct {
	Priority uint16
	Weight   uint16
	Target   string
}

func (URIData) DNSType() Type { return TypeURI }
func (d URIData) serialize(c *SerializeContext) {
	c.WriteBlob(beU16(d.Priority))
	c.WriteBlob(beU16(d.Weight))
	c.WriteBlob([]byte(d.Target))
}

// OtherData is the RDATA of any record type this package does not decode
// structurally; the raw bytes are kept opaque and re-emitted unchanged.
type OtherData struct {
	Type  Type
	Bytes []byte
}

func (d OtherData) DNSType() Type { return d.Type }
func (d OtherData) serialize(c *SerializeContext) {
	c.WriteBlob(d.Bytes)
}

func beU16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func beU32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
func beI32(v int32) []byte { return beU32(uint32(v)) }
func beU64(v uint64) [8]byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

// parseRecordDataInfallible parses RDATA for typ, bounded by the enclosing
// Restrict call. A parse failure (e.g. one more record type added to the
// wire by a newer peer than this server understands) never aborts the
// whole packet: it falls back to OtherData over the restricted region,
// mirroring the "attempt, then fall back to opaque bytes" behavior of the
// reference decoder this is adapted from.
func parseRecordDataInfallible(c *DeserializeContext, typ Type) RecordData {
	var data RecordData
	c.Attempt(func() bool {
		d, err := parseRecordData(c, typ)
		if err != nil {
			return false
		}
		data = d
		return true
	})
	if data != nil {
		return data
	}
	raw := make([]byte, c.Remaining())
	_ = c.ReadAll(raw)
	return OtherData{Type: typ, Bytes: raw}
}

// RDataIsEmpty reports whether d serializes to zero RDATA bytes, which
// RFC 2136 prerequisite and update records use to mean "no data supplied"
// for the ANY/NONE-class entries of an UPDATE message.
func RDataIsEmpty(d RecordData) bool {
	c := NewSerializeContext()
	d.serialize(c)
	return len(c.Current()) == 0
}

func parseRecordData(c *DeserializeContext, typ Type) (RecordData, error) {
	switch typ {
	case TypeA:
		b, err := c.ReadN(4)
		if err != nil {
			return nil, err
		}
		var a AData
		copy(a.Addr[:], b)
		return a, nil
	case TypeNS:
		n, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		return NSData{NSDName: n}, nil
	case TypeCNAME:
		n, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		return CNAMEData{Target: n}, nil
	case TypeSOA:
		mname, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		rname, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		serial, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		refresh, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		retry, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		expire, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		minimum, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		return SOAData{MName: mname, RName: rname, Serial: serial, Refresh: refresh, Retry: retry, Expire: expire, Minimum: minimum}, nil
	case TypePTR:
		n, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		return PTRData{PTRDName: n}, nil
	case TypeHINFO:
		cpu, err := c.ReadCString()
		if err != nil {
			return nil, err
		}
		os, err := c.ReadCString()
		if err != nil {
			return nil, err
		}
		return HINFOData{CPU: cpu, OS: os}, nil
	case TypeMX:
		pref, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		exch, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		return MXData{Preference: pref, Exchange: exch}, nil
	case TypeTXT:
		var strs []string
		for c.Remaining() > 0 {
			s, err := c.ReadCString()
			if err != nil {
				return nil, err
			}
			strs = append(strs, s)
		}
		return TXTData{Strings: strs}, nil
	case TypeAAAA:
		b, err := c.ReadN(16)
		if err != nil {
			return nil, err
		}
		var a AAAAData
		copy(a.Addr[:], b)
		return a, nil
	case TypeLOC:
		version, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		size, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		horiz, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		vert, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		lat, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		long, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		alt, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		return LOCData{Version: version, Size: size, HorizPre: horiz, VertPre: vert, Latitude: int32(lat), Longitude: int32(long), Altitude: int32(alt)}, nil
	case TypeSRV:
		pri, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		weight, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		port, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		target, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		return SRVData{Priority: pri, Weight: weight, Port: port, Target: target}, nil
	case TypeCERT:
		certType, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		keyTag, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		algo, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		rest := make([]byte, c.Remaining())
		if err := c.ReadAll(rest); err != nil {
			return nil, err
		}
		return CERTData{CertType: certType, KeyTag: keyTag, Algorithm: algo, Cert: rest}, nil
	case TypeDNAME:
		n, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		return DNAMEData{Target: n}, nil
	case TypeSSHFP:
		algo, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		fpType, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		fp := make([]byte, c.Remaining())
		if err := c.ReadAll(fp); err != nil {
			return nil, err
		}
		return SSHFPData{Algorithm: algo, FPType: fpType, Fingerprint: fp}, nil
	case TypeTSIG:
		algo, err := c.ReadName()
		if err != nil {
			return nil, err
		}
		tsBytes, err := c.ReadN(6)
		if err != nil {
			return nil, err
		}
		timeSigned := uint64(0)
		for _, b := range tsBytes {
			timeSigned = timeSigned<<8 | uint64(b)
		}
		fudge, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		macLen, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		mac := make([]byte, macLen)
		if err := c.ReadAll(mac); err != nil {
			return nil, err
		}
		origID, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		errCode, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		var other []byte
		if c.Remaining() > 0 {
			otherLen, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			other = make([]byte, otherLen)
			if err := c.ReadAll(other); err != nil {
				return nil, err
			}
		}
		return TSIGData{Algorithm: algo, TimeSigned: timeSigned, Fudge: fudge, MAC: mac, OriginalID: origID, Error: TsigResponseCode(errCode), OtherData: other}, nil
	case TypeURI:
		pri, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		weight, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		target := make([]byte, c.Remaining())
		if err := c.ReadAll(target); err != nil {
			return nil, err
		}
		if !isValidUTF8(target) {
			return nil, newParseError(InvalidUTF8, c.Index())
		}
		return URIData{Priority: pri, Weight: weight, Target: string(target)}, nil
	default:
		raw := make([]byte, c.Remaining())
		if err := c.ReadAll(raw); err != nil {
			return nil, err
		}
		return OtherData{Type: typ, Bytes: raw}, nil
	}
}

// ipv4Bytes and ipv6Bytes adapt net.IP, used by the text-form parser, to
// the fixed-size arrays stored in AData/AAAAData.
func ipv4Bytes(ip net.IP) (out [4]byte, ok bool) {
	v4 := ip.To4()
	if v4 == nil {
		return out, false
	}
	copy(out[:], v4)
	return out, true
}

func ipv6Bytes(ip net.IP) (out [16]byte, ok bool) {
	v6 := ip.To16()
	if v6 == nil || ip.To4() != nil {
		return out, false
	}
	copy(out[:], v6)
	return out, true
}
