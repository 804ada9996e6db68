package wire

import (
	"strings"
)

// maxLabelLength is the RFC 1035 §3.1 limit on a single label.
const maxLabelLength = 63

// maxNameLength is the RFC 1035 §3.1 limit on the presentation form of a name.
const maxNameLength = 255

// Name is a DNS domain name stored as its dotted presentation form plus the
// byte offset of each label within it. Unlike the reference implementation
// this package was adapted from, Name keeps the original wire-emitted
// casing: labels are never lowercased on the way in. Case-insensitive
// comparison (RFC 1035 §3.1 domain name "equal" rule) is done through Equal
// and foldKey, not by mutating stored bytes, so a name round-tripped through
// this package serializes with the casing the client or zone author used.
type Name struct {
	full    string
	offsets []uint16
}

// NameError reports a malformed domain name presentation string.
type NameError struct {
	Name    string
	Message string
}

func (e *NameError) Error() string {
	return "wire: invalid name " + quoteForError(e.Name) + ": " + e.Message
}

func quoteForError(s string) string {
	return "\"" + s + "\""
}

// ParseName parses a dotted presentation-form domain name such as
// "www.example.com" or "www.example.com." (trailing dot is the root and is
// dropped). The root name itself is "" or ".".
func ParseName(s string) (Name, error) {
	if len(s) > maxNameLength {
		return Name{}, &NameError{Name: s, Message: "name exceeds 255 bytes"}
	}
	var n Name
	if s == "" || s == "." {
		return n, nil
	}
	labels := strings.Split(s, ".")
	if labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	for _, label := range labels {
		if err := n.pushSegment(label); err != nil {
			return Name{}, err
		}
	}
	return n, nil
}

// MustParseName is ParseName but panics on error; useful for names that are
// compiled-in constants (e.g. "version.bind", "**").
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NameFromSegments builds a Name directly from already-split labels,
// skipping presentation-form escaping. Used when labels come from the wire
// decoder, which already has raw label bytes.
func NameFromSegments(segments []string) (Name, error) {
	var n Name
	for _, s := range segments {
		if err := n.pushSegment(s); err != nil {
			return Name{}, err
		}
	}
	return n, nil
}

func (n *Name) pushSegment(segment string) error {
	if segment == "" {
		return nil
	}
	if len(segment) > maxLabelLength {
		return &NameError{Name: segment, Message: "label exceeds 63 bytes"}
	}
	if n.full != "" {
		n.full += "."
	}
	start := len(n.full)
	n.full += segment
	if len(n.full) > maxNameLength {
		return &NameError{Name: n.full, Message: "name exceeds 255 bytes"}
	}
	n.offsets = append(n.offsets, uint16(start))
	return nil
}

// String returns the dotted presentation form, preserving original casing.
func (n Name) String() string {
	return n.full
}

// IsRoot reports whether the name has zero labels.
func (n Name) IsRoot() bool {
	return len(n.offsets) == 0
}

// NumLabels returns the number of labels in the name.
func (n Name) NumLabels() int {
	return len(n.offsets)
}

// foldKey returns an ASCII-lowercased copy of the presentation form, used
// for case-insensitive comparisons without mutating the stored name.
func (n Name) foldKey() string {
	return strings.ToLower(n.full)
}

// Equal reports case-insensitive equality per RFC 1035 §3.1.
func (n Name) Equal(other Name) bool {
	return n.foldKey() == other.foldKey()
}

// Less provides a total order over names for sorting, keyed on the
// case-folded presentation form.
func (n Name) Less(other Name) bool {
	return n.foldKey() < other.foldKey()
}

// Segments returns the labels of the name in wire order (left to right,
// most-specific first), e.g. "www.example.com" -> ["www","example","com"].
func (n Name) Segments() []string {
	if len(n.offsets) == 0 {
		return nil
	}
	out := make([]string, len(n.offsets))
	for i, start := range n.offsets {
		var end int
		if i+1 < len(n.offsets) {
			end = int(n.offsets[i+1]) - 1
		} else {
			end = len(n.full)
		}
		out[i] = n.full[start:end]
	}
	return out
}

// suffixFrom returns the Name made of labels[i:], used to build compression
// table keys without reallocating a new Name per suffix.
func (n Name) suffixFrom(i int) Name {
	if i >= len(n.offsets) {
		return Name{}
	}
	start := n.offsets[i]
	return Name{
		full:    n.full[start:],
		offsets: subtractOffsets(n.offsets[i:], start),
	}
}

func subtractOffsets(offsets []uint16, base uint16) []uint16 {
	out := make([]uint16, len(offsets))
	for i, o := range offsets {
		out[i] = o - base
	}
	return out
}

// EndsWith reports whether n is other, or other is a suffix of n's labels
// (a parent zone of n), matched case-insensitively label by label.
func (n Name) EndsWith(other Name) bool {
	if n.Equal(other) {
		return true
	}
	if len(n.offsets) < len(other.offsets) {
		return false
	}
	ns := n.Segments()
	os := other.Segments()
	off := len(ns) - len(os)
	for i, seg := range os {
		if !strings.EqualFold(ns[off+i], seg) {
			return false
		}
	}
	return true
}

// Contains implements the zone-authority / RRset pattern match used by
// Zone.Answer and Zone.Contains. The receiver n is the pattern; other is
// the concrete queried name. Per label position:
//
//   - a leading "**" segment matches zero or more leading labels of other
//     (so a zone declared at "**.example.com" covers example.com itself
//     and anything under it);
//   - a leading "*+" segment matches one or more leading labels of other
//     (so "*+.example.com" covers "www.example.com" but not "example.com");
//   - a bare "*" segment matches exactly one label at that position;
//   - any other segment must match case-insensitively.
func (n Name) Contains(other Name) bool {
	if n.Equal(other) {
		return true
	}
	pattern := n.Segments()
	candidate := other.Segments()

	if len(pattern) > 0 && pattern[0] == "**" {
		rest := pattern[1:]
		if len(candidate) < len(rest) {
			return false
		}
		return matchFromRight(rest, candidate)
	}
	if len(pattern) > 0 && pattern[0] == "*+" {
		rest := pattern[1:]
		if len(candidate) < len(rest)+1 {
			return false
		}
		return matchFromRight(rest, candidate)
	}
	if len(pattern) != len(candidate) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && !strings.EqualFold(seg, candidate[i]) {
			return false
		}
	}
	return true
}

// matchFromRight matches pattern segments (which may contain "*" wildcards)
// against the trailing len(pattern) segments of candidate.
func matchFromRight(pattern, candidate []string) bool {
	off := len(candidate) - len(pattern)
	for i, seg := range pattern {
		if seg != "*" && !strings.EqualFold(seg, candidate[off+i]) {
			return false
		}
	}
	return true
}
