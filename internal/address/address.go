// Package address implements the zettelkasten address algebra: parsing
// addresses like "1a2b" into typed segments, validating their grammar,
// ordering them, and reconstructing ancestors from segment prefixes.
package address

import (
	"strings"

	"github.com/starford/kasten/internal/apperr"
)

// Kind is the type of an address segment.
type Kind int

const (
	Numeric Kind = iota
	Alpha
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "alpha"
}

// Segment is one typed component of an address.
//
// For Numeric segments Text holds the decimal digits with leading zeros
// removed ("0" when every digit is zero), so Text is also the rendered value.
// For Alpha segments Text is the literal lowercase letter run.
type Segment struct {
	Kind Kind
	Text string
}

// Parse splits raw into segments. Digit runs become Numeric segments,
// letter runs become Alpha segments, and every other character is skipped.
// Only ASCII letters count; other runes are skipped even when they have an
// ASCII lowercase form. Parse never fails; blank or non-alphanumeric input
// yields nil.
func Parse(raw string) []Segment {
	s := lowerASCII(raw)
	var out []Segment
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isDigit(c):
			j := i
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			out = append(out, Segment{Kind: Numeric, Text: trimZeros(s[i:j])})
			i = j
		case isLetter(c):
			j := i
			for j < len(s) && isLetter(s[j]) {
				j++
			}
			out = append(out, Segment{Kind: Alpha, Text: s[i:j]})
			i = j
		default:
			i++
		}
	}
	return out
}

// IsValid reports whether raw is a well-formed address: at least one
// segment, starting with Numeric, with kinds strictly alternating.
func IsValid(raw string) bool {
	return Validate(raw) == nil
}

// Validate is IsValid with a reason attached.
func Validate(raw string) error {
	segs := Parse(raw)
	if len(segs) == 0 {
		return &apperr.ValidationError{Address: raw, Reason: "empty"}
	}
	if segs[0].Kind != Numeric {
		return &apperr.ValidationError{Address: raw, Reason: "must start with a number"}
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].Kind == segs[i-1].Kind {
			return &apperr.ValidationError{Address: raw, Reason: "numbers and letters must alternate"}
		}
	}
	return nil
}

// Depth returns the number of segments in raw. Only meaningful for valid addresses.
func Depth(raw string) int {
	return len(Parse(raw))
}

// Canonicalize trims raw and lowercases its ASCII letters. It does not validate.
func Canonicalize(raw string) string {
	return lowerASCII(strings.TrimSpace(raw))
}

// SegmentsToAddress renders segments back into an address string.
func SegmentsToAddress(segs []Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Key returns the identity form of raw: two addresses are the same node
// iff their keys are equal ("01a" and "1A" both have key "1a").
func Key(raw string) string {
	return SegmentsToAddress(Parse(raw))
}

// Parent returns the structural parent of raw (all segments but the last).
// Top-level and empty addresses have no parent.
func Parent(raw string) (string, bool) {
	segs := Parse(raw)
	if len(segs) <= 1 {
		return "", false
	}
	return SegmentsToAddress(segs[:len(segs)-1]), true
}

// lowerASCII folds A-Z only. strings.ToLower would also map runes such as
// U+212A KELVIN SIGN onto ASCII letters.
func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }

func trimZeros(digits string) string {
	t := strings.TrimLeft(digits, "0")
	if t == "" {
		return "0"
	}
	return t
}
