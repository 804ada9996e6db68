package zone

import (
	"encoding/base64"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nkovacs/adnsd/internal/wire"
)

const defaultTTL = 300

// zoneRecord is the YAML presentation form of a wire.Record: a zone file
// names a record by its domain, type, optional class/TTL (defaulted if
// omitted), and the RDATA in zone-file text form.
type zoneRecord struct {
	Domain string `yaml:"domain"`
	Type   string `yaml:"type"`
	Class  string `yaml:"class,omitempty"`
	TTL    uint32 `yaml:"ttl,omitempty"`
	Data   string `yaml:"data"`
}

func (r zoneRecord) toRecord() (wire.Record, error) {
	name, err := wire.ParseName(r.Domain)
	if err != nil {
		return wire.Record{}, fmt.Errorf("zone: record domain %q: %w", r.Domain, err)
	}
	typ, err := wire.ParseTypeText(r.Type)
	if err != nil {
		return wire.Record{}, fmt.Errorf("zone: record type %q: %w", r.Type, err)
	}
	class := wire.ClassIN
	if r.Class != "" {
		c, err := wire.ParseClassText(r.Class)
		if err != nil {
			return wire.Record{}, fmt.Errorf("zone: record class %q: %w", r.Class, err)
		}
		class = c
	}
	ttl := r.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	data, err := wire.ParseRecordDataText(typ, r.Data)
	if err != nil {
		return wire.Record{}, fmt.Errorf("zone: record %s %s data %q: %w", r.Domain, r.Type, r.Data, err)
	}
	return wire.Record{Name: name, Type: typ, Class: class, TTL: ttl, Data: data}, nil
}

func fromRecord(r wire.Record) zoneRecord {
	out := zoneRecord{
		Domain: r.Name.String(),
		Type:   r.Type.String(),
		Data:   r.Data.String(),
	}
	if r.Class != wire.ClassIN {
		out.Class = r.Class.String()
	}
	if r.TTL != defaultTTL {
		out.TTL = r.TTL
	}
	return out
}

// soaYAML is the YAML presentation form of an SOA record's RDATA.
type soaYAML struct {
	MName   string `yaml:"mname"`
	RName   string `yaml:"rname"`
	Serial  uint32 `yaml:"serial"`
	Refresh uint32 `yaml:"refresh"`
	Retry   uint32 `yaml:"retry"`
	Expire  uint32 `yaml:"expire"`
	Minimum uint32 `yaml:"minimum"`
}

func (s soaYAML) toSOA() (wire.SOAData, error) {
	mname, err := wire.ParseName(s.MName)
	if err != nil {
		return wire.SOAData{}, err
	}
	rname, err := wire.ParseName(s.RName)
	if err != nil {
		return wire.SOAData{}, err
	}
	return wire.SOAData{
		MName: mname, RName: rname, Serial: s.Serial,
		Refresh: s.Refresh, Retry: s.Retry, Expire: s.Expire, Minimum: s.Minimum,
	}, nil
}

func fromSOA(s wire.SOAData) soaYAML {
	return soaYAML{
		MName: s.MName.String(), RName: s.RName.String(), Serial: s.Serial,
		Refresh: s.Refresh, Retry: s.Retry, Expire: s.Expire, Minimum: s.Minimum,
	}
}

// zoneDoc is the YAML presentation form of a root Zone: every field
// defaults to its zero value so that a minimal zone file (just records)
// is valid.
type zoneDoc struct {
	Records       []zoneRecord          `yaml:"records,omitempty"`
	Zones         map[string]subZoneDoc `yaml:"zones,omitempty"`
	SOA           *soaYAML              `yaml:"soa,omitempty"`
	Nameservers   []string              `yaml:"nameservers,omitempty"`
	TsigKeys      map[string]tsigKeyDoc `yaml:"tsig_keys,omitempty"`
	Authoritative *bool                 `yaml:"authoritative,omitempty"`
	AllowMD5Tsig  bool                  `yaml:"allow_md5_tsig,omitempty"`
}

// subZoneDoc is the restricted YAML shape used for nested delegated
// zones: no further sub-zones, TSIG keys, or class override.
type subZoneDoc struct {
	Records       []zoneRecord `yaml:"records,omitempty"`
	Authoritative *bool        `yaml:"authoritative,omitempty"`
	SOA           *soaYAML     `yaml:"soa,omitempty"`
	Nameservers   []string     `yaml:"nameservers,omitempty"`
}

type tsigKeyDoc struct {
	Secret    string `yaml:"secret"`
	Algorithm string `yaml:"algorithm"`
}

// ParseYAML decodes a zone document.
func ParseYAML(data []byte) (*Zone, error) {
	var doc zoneDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("zone: parse yaml: %w", err)
	}
	return docToZone(doc)
}

// MarshalYAML encodes z as a zone document.
func MarshalYAML(z *Zone) ([]byte, error) {
	return yaml.Marshal(zoneToDoc(z))
}

func docToZone(doc zoneDoc) (*Zone, error) {
	z := New()
	for _, r := range doc.Records {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		z.Records = append(z.Records, rec)
	}
	if doc.SOA != nil {
		soa, err := doc.SOA.toSOA()
		if err != nil {
			return nil, err
		}
		z.SOA = &soa
	}
	for _, ns := range doc.Nameservers {
		n, err := wire.ParseName(ns)
		if err != nil {
			return nil, err
		}
		z.Nameservers = append(z.Nameservers, n)
	}
	if doc.TsigKeys != nil {
		z.TsigKeys = make(map[string]TsigKey, len(doc.TsigKeys))
		for name, k := range doc.TsigKeys {
			secret, err := base64.StdEncoding.DecodeString(k.Secret)
			if err != nil {
				return nil, fmt.Errorf("zone: tsig key %q: %w", name, err)
			}
			algo, err := wire.ParseName(k.Algorithm)
			if err != nil {
				return nil, fmt.Errorf("zone: tsig key %q algorithm: %w", name, err)
			}
			z.TsigKeys[name] = TsigKey{Secret: secret, Algorithm: algo}
		}
	}
	if doc.Authoritative != nil {
		z.Authoritative = *doc.Authoritative
	} else {
		z.Authoritative = true
	}
	z.AllowMD5Tsig = doc.AllowMD5Tsig

	for name, sub := range doc.Zones {
		subName, err := wire.ParseName(name)
		if err != nil {
			return nil, fmt.Errorf("zone: sub-zone name %q: %w", name, err)
		}
		subZone, err := subDocToZone(sub)
		if err != nil {
			return nil, err
		}
		z.SetChild(subName, subZone)
	}
	return z, nil
}

func subDocToZone(doc subZoneDoc) (*Zone, error) {
	z := New()
	for _, r := range doc.Records {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		z.Records = append(z.Records, rec)
	}
	if doc.SOA != nil {
		soa, err := doc.SOA.toSOA()
		if err != nil {
			return nil, err
		}
		z.SOA = &soa
	}
	for _, ns := range doc.Nameservers {
		n, err := wire.ParseName(ns)
		if err != nil {
			return nil, err
		}
		z.Nameservers = append(z.Nameservers, n)
	}
	if doc.Authoritative != nil {
		z.Authoritative = *doc.Authoritative
	} else {
		z.Authoritative = true
	}
	return z, nil
}

func zoneToDoc(z *Zone) zoneDoc {
	doc := zoneDoc{}
	for _, r := range z.Records {
		doc.Records = append(doc.Records, fromRecord(r))
	}
	if z.SOA != nil {
		soa := fromSOA(*z.SOA)
		doc.SOA = &soa
	}
	for _, ns := range z.Nameservers {
		doc.Nameservers = append(doc.Nameservers, ns.String())
	}
	if len(z.TsigKeys) > 0 {
		doc.TsigKeys = make(map[string]tsigKeyDoc, len(z.TsigKeys))
		for name, k := range z.TsigKeys {
			doc.TsigKeys[name] = tsigKeyDoc{
				Secret:    base64.StdEncoding.EncodeToString(k.Secret),
				Algorithm: k.Algorithm.String(),
			}
		}
	}
	if !z.Authoritative {
		authoritative := false
		doc.Authoritative = &authoritative
	}
	doc.AllowMD5Tsig = z.AllowMD5Tsig

	if len(z.children) > 0 {
		doc.Zones = make(map[string]subZoneDoc, len(z.children))
		for _, c := range z.children {
			doc.Zones[c.name.String()] = zoneToSubDoc(c.zone)
		}
	}
	return doc
}

func zoneToSubDoc(z *Zone) subZoneDoc {
	doc := subZoneDoc{}
	for _, r := range z.Records {
		doc.Records = append(doc.Records, fromRecord(r))
	}
	if z.SOA != nil {
		soa := fromSOA(*z.SOA)
		doc.SOA = &soa
	}
	for _, ns := range z.Nameservers {
		doc.Nameservers = append(doc.Nameservers, ns.String())
	}
	if !z.Authoritative {
		authoritative := false
		doc.Authoritative = &authoritative
	}
	return doc
}
