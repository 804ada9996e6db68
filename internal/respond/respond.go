// Package respond answers a single DNS message: ordinary queries, zone
// transfers (AXFR), and RFC 2136 dynamic updates, over whichever transport
// the caller is using. It has no knowledge of sockets; callers hand it
// wire bytes and a sink for update actions, and get back wire bytes (or
// several, for a multi-message AXFR) to send back.
package respond

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/nkovacs/adnsd/internal/provider"
	"github.com/nkovacs/adnsd/internal/tsig"
	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

// tsigInfo is carried from validation through to response serialization:
// the key and algorithm used, plus the request's own MAC, which seeds the
// MAC chain for a multi-message AXFR reply (RFC 2845 §4.4).
type tsigInfo struct {
	name       wire.Name
	algorithm  wire.Name
	requestMAC []byte
}

// Response is one or more wire-format messages answering a single request;
// AXFR produces several, everything else produces exactly one.
type Response struct {
	packets []wire.Packet
	tsig    *tsigInfo
}

// Serialize encodes every message in r, signing each with TSIG (chained,
// per RFC 2845 §4.4) if the request itself was signed.
func (r *Response) Serialize(z *zone.Zone, maxSize int) [][]byte {
	out := make([][]byte, 0, len(r.packets))
	if r.tsig == nil {
		for _, p := range r.packets {
			out = append(out, p.Serialize(maxSize))
		}
		return out
	}

	keys := tsigKeyLookup(z)
	var previousMAC []byte
	for i, p := range r.packets {
		mode := tsig.ModeTimersOnly
		prefix := previousMAC
		if i == 0 {
			mode = tsig.ModeNormal
			prefix = r.tsig.requestMAC
		}
		signed := tsig.SerializePacket(keys, p, maxSize, r.tsig.name, r.tsig.algorithm, z.AllowMD5Tsig, mode, prefix)
		previousMAC = signed.MAC
		out = append(out, signed.Bytes)
	}
	return out
}

func tsigKeyLookup(z *zone.Zone) tsig.KeyLookup {
	return func(keyName string) ([]byte, bool) {
		key, ok := z.TsigKeys[keyName]
		if !ok {
			return nil, false
		}
		return key.Secret, true
	}
}

func singlePacket(p wire.Packet, info *tsigInfo) *Response {
	return &Response{packets: []wire.Packet{p}, tsig: info}
}

// Respond answers a single inbound message raw, received over a connection
// identified by from (used only for logging) that is a TCP connection iff
// isTCP. z is the current zone snapshot; updates receives any RFC 2136
// UPDATE the message describes, which the caller's zone provider should
// apply before this function's ack channel is allowed to complete -- see
// provider.Update. Respond returns nil if raw could not be parsed at all,
// or was itself a truncated query (the sender is expected to retry over
// TCP).
func Respond(ctx context.Context, isTCP bool, z *zone.Zone, updates chan<- provider.Update, from string, raw []byte) *Response {
	packet, validatable, err := wire.ParsePacket(raw)
	if err != nil {
		log.Infof("[%s] failed to parse packet: %v", from, err)
		return nil
	}

	response := wire.Packet{
		Header: wire.Header{
			ID:     packet.Header.ID,
			QR:     wire.Response,
			Opcode: packet.Header.Opcode,
			RCode:  wire.NoError,
		},
	}

	if packet.Header.QR != wire.Query || packet.Header.RCode != wire.NoError {
		response.Header.RCode = wire.NotImplemented
		return singlePacket(response, nil)
	}
	if packet.Header.Truncated {
		return nil
	}

	var info *tsigInfo
	if validatable != nil {
		preimage := append([]byte(nil), validatable.PreImage...)
		if len(preimage) >= wire.HeaderLength {
			count := uint16(preimage[10])<<8 | uint16(preimage[11])
			count--
			preimage[10] = byte(count >> 8)
			preimage[11] = byte(count)
		}
		mac, err := tsig.Validate(tsigKeyLookup(z), preimage, validatable.Name, validatable.Data, z.AllowMD5Tsig, tsig.ModeNormal, nil)
		if err != nil {
			log.Warnf("[%s] TSIG validation error: %v", from, err)
			response.Header.RCode = wire.NotAuth
			response.AdditionalRecords = append(response.AdditionalRecords, tsigErrorRecord(validatable, err))
			return singlePacket(response, nil)
		}
		info = &tsigInfo{name: validatable.Name, algorithm: validatable.Data.Algorithm, requestMAC: mac}
	}

	switch packet.Header.Opcode {
	case wire.OpcodeQuery:
		if axfrName, ok := axfrQuestion(packet); ok {
			if info == nil || !isTCP {
				log.Warnf("[%s] refused an AXFR for %s", from, axfrName)
				response.Header.RCode = wire.Refused
				return singlePacket(response, info)
			}
			return &Response{packets: axfrResponses(z, axfrName, response), tsig: info}
		}
		return &Response{packets: []wire.Packet{respondQuery(z, packet, response)}, tsig: info}

	case wire.OpcodeUpdate:
		if info == nil {
			log.Warnf("[%s] refused an RFC 2136 update", from)
			response.Header.RCode = wire.Refused
			return singlePacket(response, nil)
		}
		planned, err := planUpdate(z, packet)
		if err != nil {
			uerr, _ := err.(updateError)
			response.Header.RCode = uerr.rcode()
			return singlePacket(response, info)
		}
		ack := make(chan struct{})
		select {
		case updates <- provider.Update{Update: planned, Ack: ack}:
		case <-ctx.Done():
			response.Header.RCode = wire.ServerFailure
			return singlePacket(response, info)
		}
		select {
		case <-ack:
		case <-ctx.Done():
			response.Header.RCode = wire.ServerFailure
		}
		return singlePacket(response, info)

	default:
		response.Header.RCode = wire.NotImplemented
		return singlePacket(response, info)
	}
}

func respondQuery(z *zone.Zone, packet wire.Packet, response wire.Packet) wire.Packet {
	response.Questions = packet.Questions
	answers, nameservers, additional, authoritative, state := answerQuery(z, packet.Questions)
	response.Answers = answers
	response.Nameservers = nameservers
	response.AdditionalRecords = additional
	response.Header.Authoritative = authoritative
	if state == zone.AnswerNone {
		response.Header.RCode = wire.NXDomain
	}
	logQuery(packet, response)
	return response
}

func logQuery(request, response wire.Packet) {
	for _, q := range request.Questions {
		if len(response.Answers) == 0 {
			log.Infof("%04X %s %s -> []", request.Header.ID, q.Type, q.Name)
			continue
		}
		for _, a := range response.Answers {
			log.Infof("%04X %s %s -> %s %s %s", request.Header.ID, q.Type, q.Name, a.Name, a.Type, a.Data)
		}
	}
}

func tsigErrorRecord(validatable *wire.ValidatableTSIG, err error) wire.Record {
	tsigErr, ok := err.(*tsig.Error)
	if !ok {
		tsigErr = &tsig.Error{Code: wire.TsigBadKey}
	}
	return tsig.ErrorRecord(validatable.Name, validatable.Data, tsigErr)
}
