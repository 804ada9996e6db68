package wire

// Packet is a complete DNS message: header plus the four RR sections.
type Packet struct {
	Header            Header
	Questions         []Question
	Answers           []Record
	Nameservers       []Record
	AdditionalRecords []Record
}

// ValidatableTSIG is a TSIG pseudo-record detached from a parsed packet's
// additional section, along with the prefix of the wire bytes that were
// read up to (but not including) it. The prefix is left as received, so its
// header's additional-record count still includes the TSIG record; TSIG
// verification needs that count decremented, which callers do on a copy.
type ValidatableTSIG struct {
	Name     Name
	Data     TSIGData
	PreImage []byte
}

// ParsePacket decodes a full wire-format DNS message. If the last record
// of the additional section is a TSIG record, it is detached from
// AdditionalRecords and returned separately, since TSIG validation needs
// to operate on the bytes before it rather than the field itself.
func ParsePacket(data []byte) (Packet, *ValidatableTSIG, error) {
	if len(data) < HeaderLength {
		return Packet{}, nil, newParseError(HeaderTruncated, 0)
	}
	header := parseHeader(data[:HeaderLength])
	if !header.validate() {
		return Packet{}, nil, newParseError(InvalidHeader, 0)
	}
	if header.Truncated {
		return Packet{}, nil, newParseError(Truncated, 0)
	}

	packet := Packet{
		Header:            header,
		Questions:         make([]Question, 0, header.QuestionCount),
		Answers:           make([]Record, 0, header.AnswerCount),
		Nameservers:       make([]Record, 0, header.NameserverCount),
		AdditionalRecords: make([]Record, 0, header.AdditionalCount),
	}
	c := NewDeserializeContextPostHeader(data)

	for i := uint16(0); i < header.QuestionCount; i++ {
		q, err := parseQuestion(c)
		if err != nil {
			return Packet{}, nil, err
		}
		packet.Questions = append(packet.Questions, q)
	}
	for i := uint16(0); i < header.AnswerCount; i++ {
		r, err := parseRecord(c)
		if err != nil {
			return Packet{}, nil, err
		}
		packet.Answers = append(packet.Answers, r)
	}
	for i := uint16(0); i < header.NameserverCount; i++ {
		r, err := parseRecord(c)
		if err != nil {
			return Packet{}, nil, err
		}
		packet.Nameservers = append(packet.Nameservers, r)
	}

	var tsig *ValidatableTSIG
	for i := uint16(0); i < header.AdditionalCount; i++ {
		preImageEnd := c.Index()
		r, err := parseRecord(c)
		if err != nil {
			return Packet{}, nil, err
		}
		if i == header.AdditionalCount-1 && r.Type == TypeTSIG {
			tsigData, ok := r.Data.(TSIGData)
			if !ok {
				return Packet{}, nil, newParseError(CorruptRecord, preImageEnd)
			}
			tsig = &ValidatableTSIG{Name: r.Name, Data: tsigData, PreImage: data[:preImageEnd]}
			continue
		}
		packet.AdditionalRecords = append(packet.AdditionalRecords, r)
	}

	return packet, tsig, nil
}

// serializeOpen writes the header and every section, including all of
// AdditionalRecords as given, and returns the header actually written (with
// section counts filled in) plus the in-progress serialization context. The
// tsig package appends its own TSIG record to that context after MAC
// computation.
func (p Packet) serializeOpen() (Header, *SerializeContext) {
	c := NewSerializeContext()
	header := p.Header
	header.QuestionCount = uint16(len(p.Questions))
	header.AnswerCount = uint16(len(p.Answers))
	header.NameserverCount = uint16(len(p.Nameservers))
	header.AdditionalCount = uint16(len(p.AdditionalRecords))
	hb := header.Bytes()
	c.WriteBlob(hb[:])

	for _, q := range p.Questions {
		q.serialize(c)
	}
	for _, r := range p.Answers {
		r.serialize(c)
	}
	for _, r := range p.Nameservers {
		r.serialize(c)
	}
	for _, r := range p.AdditionalRecords {
		r.serialize(c)
	}
	return header, c
}

// SerializeOpen exposes serializeOpen to the tsig package, which needs to
// append a TSIG record after the rest of the packet is already framed.
func (p Packet) SerializeOpen() (Header, *SerializeContext) {
	return p.serializeOpen()
}

// Serialize encodes the packet, truncating (and setting the TC bit) if the
// result would exceed maxSize bytes.
func (p Packet) Serialize(maxSize int) []byte {
	header, c := p.serializeOpen()
	out := c.Finalize()
	if len(out) > maxSize {
		out = out[:maxSize]
		header.Truncated = true
		hb := header.Bytes()
		copy(out[:HeaderLength], hb[:])
	}
	return out
}
