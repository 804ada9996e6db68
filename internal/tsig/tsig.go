// Package tsig implements RFC 2845 transaction signatures: computing and
// validating the HMAC carried in a TSIG pseudo-record, and producing the
// BADSIG/BADKEY/BADTIME error records RFC 2845 §4.3 describes for a
// failed validation.
package tsig

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"time"

	"github.com/nkovacs/adnsd/internal/wire"
)

// Mode selects which fields of the TSIG variables are included in the
// signed pre-image, per RFC 2845 §4.4 (TSIG truncation is not supported;
// only the "full" and timers-only variable forms used by multi-message
// AXFR signing are).
type Mode int

const (
	// ModeNormal signs the full TSIG variables: owner name, class, TTL,
	// algorithm, time signed, fudge, error, and other data. Used for the
	// first (or only) message in a TSIG-signed exchange.
	ModeNormal Mode = iota
	// ModeTimersOnly signs only time signed and fudge, per RFC 2845 §4.4,
	// used for the 2nd..nth message of a TSIG-signed AXFR stream, since
	// those messages don't repeat the key name/algorithm.
	ModeTimersOnly
)

// Error reports why a TSIG validation failed. It carries the
// wire.TsigResponseCode a caller should place in the error record sent
// back to the peer.
type Error struct {
	Code    wire.TsigResponseCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("tsig: %s", e.Message)
}

func newError(code wire.TsigResponseCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// KeyLookup resolves a TSIG key name to its shared secret. It returns
// (nil, false) if no key is configured under that name.
type KeyLookup func(keyName string) ([]byte, bool)

// algorithms maps the TSIG algorithm name, as carried on the wire, to a
// hash constructor. hmac-md5 is intentionally excluded unless the caller
// opts in via allowMD5, since it is a legacy compatibility algorithm only
// (RFC 8945 deprecates it outright).
var algorithms = map[string]func() hash.Hash{
	"hmac-sha1":   sha1.New,
	"hmac-sha224": sha256.New224,
	"hmac-sha256": sha256.New,
	"hmac-sha384": sha512.New384,
	"hmac-sha512": sha512.New,
}

const md5AlgorithmName = "hmac-md5.sig-alg.reg.int"

func hashFor(algorithm string, allowMD5 bool) (func() hash.Hash, bool) {
	if algorithm == md5AlgorithmName {
		if allowMD5 {
			return md5.New, true
		}
		return nil, false
	}
	h, ok := algorithms[algorithm]
	return h, ok
}

// Calculate's clock-skew check allows time.Now() to differ from a TSIG
// record's TimeSigned by at most the record's own Fudge value, in seconds;
// no local slack is added on top of the peer's stated fudge.

// Calculate computes the MAC that should appear in tsig.MAC for the given
// pre-image. data is the wire bytes of the message up to (but not
// including) the TSIG record itself. name is the TSIG key name.
// requestMAC is non-nil when signing a response to a signed request (RFC
// 2845 §4.2 step 1) or a later AXFR message (§4.4).
func Calculate(keys KeyLookup, data []byte, name wire.Name, tsig wire.TSIGData, allowMD5 bool, mode Mode, requestMAC []byte) ([]byte, error) {
	if len(data) < wire.HeaderLength {
		return nil, newError(wire.TsigBadKey, "message too short to sign")
	}
	key, ok := keys(name.String())
	if !ok {
		return nil, newError(wire.TsigBadKey, "unknown key "+name.String())
	}

	timeSigned := time.Unix(int64(tsig.TimeSigned), 0)
	fudge := time.Duration(tsig.Fudge) * time.Second
	now := time.Now()
	if now.Add(-fudge).After(timeSigned) || now.Add(fudge).Before(timeSigned) {
		return nil, newError(wire.TsigBadTime, "time signed outside fudge window")
	}

	newHash, ok := hashFor(tsig.Algorithm.String(), allowMD5)
	if !ok {
		return nil, newError(wire.TsigBadKey, "unknown or disallowed algorithm "+tsig.Algorithm.String())
	}

	buf := make([]byte, 0, len(data)+len(requestMAC)+32)
	if requestMAC != nil {
		buf = append(buf, byte(len(requestMAC)>>8), byte(len(requestMAC)))
		buf = append(buf, requestMAC...)
	}
	buf = append(buf, byte(tsig.OriginalID>>8), byte(tsig.OriginalID))
	buf = append(buf, data[2:]...)

	c := wire.NewSerializeContext()
	switch mode {
	case ModeTimersOnly:
		writeUint48(c, tsig.TimeSigned)
		c.WriteBlob([]byte{byte(tsig.Fudge >> 8), byte(tsig.Fudge)})
	default:
		c.WriteName(name)
		c.WipeCompression()
		c.WriteBlob([]byte{0, 255}) // class ANY, per RFC 2845 §2.3
		c.WriteBlob([]byte{0, 0, 0, 0})
		c.WriteName(tsig.Algorithm)
		writeUint48(c, tsig.TimeSigned)
		c.WriteBlob([]byte{byte(tsig.Fudge >> 8), byte(tsig.Fudge)})
		c.WriteBlob([]byte{byte(tsig.Error >> 8), byte(tsig.Error)})
		c.WriteBlob([]byte{byte(len(tsig.OtherData) >> 8), byte(len(tsig.OtherData))})
		c.WriteBlob(tsig.OtherData)
	}
	buf = append(buf, c.Finalize()...)

	mac := hmac.New(newHash, key)
	mac.Write(buf)
	return mac.Sum(nil), nil
}

func writeUint48(c *wire.SerializeContext, v uint64) {
	c.WriteBlob([]byte{
		byte(v >> 40), byte(v >> 32), byte(v >> 24),
		byte(v >> 16), byte(v >> 8), byte(v),
	})
}

// Validate recomputes the MAC for tsig over data and compares it against
// tsig.MAC in constant time, per RFC 2845 §4.6.
func Validate(keys KeyLookup, data []byte, name wire.Name, tsig wire.TSIGData, allowMD5 bool, mode Mode, requestMAC []byte) ([]byte, error) {
	mac, err := Calculate(keys, data, name, tsig, allowMD5, mode, requestMAC)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal(tsig.MAC, mac) {
		return nil, newError(wire.TsigBadSig, "signature mismatch")
	}
	return mac, nil
}

// ErrorRecord builds the TSIG RR RFC 2845 §4.3 specifies for a failed
// validation: same algorithm/time/fudge as the request, empty MAC, and the
// extended RCODE describing the failure.
func ErrorRecord(name wire.Name, tsig wire.TSIGData, err *Error) wire.Record {
	r := wire.NewRecord(name, 0, wire.TSIGData{
		Algorithm:  tsig.Algorithm,
		TimeSigned: tsig.TimeSigned,
		Fudge:      tsig.Fudge,
		MAC:        nil,
		OriginalID: tsig.OriginalID,
		Error:      err.Code,
		OtherData:  nil,
	})
	r.Class = wire.Class(255)
	return r
}

// SignedPacket is the wire bytes of a signed packet plus the MAC that was
// computed for it (needed as the requestMAC input when chaining TSIG
// across an AXFR's follow-up messages).
type SignedPacket struct {
	Bytes []byte
	MAC   []byte
}

// SerializePacket finalizes p, appends a TSIG record signed with keys over
// its own bytes, and returns the completed wire form. If signing fails
// (unknown key, bad algorithm), the appended record instead carries the
// appropriate BADSIG/BADKEY/BADTIME error code with an empty MAC, matching
// RFC 2845 §4.3's "always attach a TSIG, even on failure" behavior for a
// response to a signed query.
func SerializePacket(keys KeyLookup, p wire.Packet, maxSize int, name wire.Name, algorithm wire.Name, allowMD5 bool, mode Mode, requestMAC []byte) SignedPacket {
	header, c := p.SerializeOpen()
	data := wire.TSIGData{
		Algorithm:  algorithm,
		TimeSigned: uint64(time.Now().Unix()),
		Fudge:      300,
		OriginalID: header.ID,
		Error:      wire.TsigNoError,
	}

	var record wire.Record
	var mac []byte
	computed, err := Calculate(keys, c.Current(), name, data, allowMD5, mode, requestMAC)
	if err != nil {
		var tsigErr *Error
		if e, ok := err.(*Error); ok {
			tsigErr = e
		} else {
			tsigErr = newError(wire.TsigBadKey, err.Error())
		}
		record = ErrorRecord(name, data, tsigErr)
	} else {
		data.MAC = computed
		mac = computed
		record = wire.NewRecord(name, 0, data)
		record.Class = wire.Class(255)
	}

	header.AdditionalCount++
	c.WipeCompression()
	record.SerializeInto(c)

	out := c.Finalize()
	if len(out) > maxSize {
		out = out[:maxSize]
		header.Truncated = true
	}
	hb := header.Bytes()
	copy(out[:wire.HeaderLength], hb[:])
	return SignedPacket{Bytes: out, MAC: mac}
}
