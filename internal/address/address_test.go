package address

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/kasten/internal/apperr"
)

func TestParse(t *testing.T) {
	segs := Parse("01a2")
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Kind: Numeric, Text: "1"}, segs[0])
	assert.Equal(t, Segment{Kind: Alpha, Text: "a"}, segs[1])
	assert.Equal(t, Segment{Kind: Numeric, Text: "2"}, segs[2])
}

func TestParse_SkipsPunctuation(t *testing.T) {
	assert.Equal(t, "1a2b", SegmentsToAddress(Parse(" 1.a/2-b ")))
	assert.Equal(t, 4, Depth("1.a.2.b"))
}

func TestParse_Uppercase(t *testing.T) {
	assert.Equal(t, Parse("1a"), Parse("1A"))
}

func TestParse_NonASCIILettersSkipped(t *testing.T) {
	// U+212A KELVIN SIGN and U+0130 fold to ASCII under Unicode lowercasing.
	assert.Equal(t, []Segment{{Kind: Numeric, Text: "1"}}, Parse("1\u212A"))
	assert.Equal(t, []Segment{{Kind: Numeric, Text: "2"}}, Parse("2\u0130"))
	assert.Equal(t, "1", Key("1\u212A"))
	assert.Empty(t, Parse("\u212A\u00e9"))

	var ve *apperr.ValidationError
	require.ErrorAs(t, Validate("1\u212A2"), &ve)
	assert.Equal(t, "numbers and letters must alternate", ve.Reason)
}

func TestParse_Blank(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("   "))
	assert.Empty(t, Parse("--//"))
}

func TestParse_LetterRunIsOneSegment(t *testing.T) {
	segs := Parse("1aa")
	require.Len(t, segs, 2)
	assert.Equal(t, "aa", segs[1].Text)
}

func TestParse_ZeroRun(t *testing.T) {
	segs := Parse("000")
	require.Len(t, segs, 1)
	assert.Equal(t, "0", segs[0].Text)
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]string{
		"01a2":    "1a2",
		"1a2b":    "1a2b",
		"10b007c": "10b7c",
		" 3XY12 ": "3xy12",
		"0":       "0",
		"00a00":   "0a0",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			require.True(t, IsValid(in))
			assert.Equal(t, want, SegmentsToAddress(Parse(in)))
		})
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{"1", "1a", "1a2", "1a2b", "1aa", "12ab34cd", " 7B "}
	for _, a := range valid {
		assert.True(t, IsValid(a), a)
	}
	invalid := []string{"", "  ", "a", "a1", "!!", "-"}
	for _, a := range invalid {
		assert.False(t, IsValid(a), a)
	}
}

func TestValidate_Reasons(t *testing.T) {
	err := Validate("a1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "a1", ve.Address)
	assert.Contains(t, ve.Reason, "start with a number")

	require.ErrorAs(t, Validate(""), &ve)
	assert.Equal(t, "empty", ve.Reason)
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 1, Depth("1"))
	assert.Equal(t, 2, Depth("1aa"))
	assert.Equal(t, 5, Depth("1a2c3"))
	assert.Equal(t, 0, Depth(""))
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "1a2b", Canonicalize("  1A2B \n"))
	assert.Equal(t, "01a", Canonicalize("01A"))
	assert.Equal(t, "1\u212A", Canonicalize(" 1\u212A "))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("1a"), Key("01A"))
	assert.Equal(t, "1a", Key(" 1.a "))
}

func TestParent(t *testing.T) {
	p, ok := Parent("1a2c3")
	require.True(t, ok)
	assert.Equal(t, "1a2c", p)

	p, ok = Parent("01b")
	require.True(t, ok)
	assert.Equal(t, "1", p)

	_, ok = Parent("5")
	assert.False(t, ok)
	_, ok = Parent("")
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "1", 0},
		{"1", "2", -1},
		{"2", "10", -1},
		{"010", "9", 1},
		{"01", "1", 0},
		{"1a", "1b", -1},
		{"1b", "1aa", 1},
		{"1z", "1aa", 1},
		{"1a", "1a2", -1},
		{"1a2", "1a", 1},
		{"1a9", "1a10", -1},
		{"1", "a", -1},
		{"a", "1", 1},
		{"1a", "11", -1},
		{"", "1", -1},
		{"", "", 0},
		{"99999999999999999999999", "100000000000000000000000", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
	}
}

func TestCompare_PrefixPrecedesExtensions(t *testing.T) {
	for _, ext := range []string{"1a2", "1a2b", "1a10", "1a1z9"} {
		assert.Equal(t, -1, Compare("1a", ext), ext)
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	addrs := []string{"1", "1a", "1a1", "1a2", "1a10", "1b", "1aa", "2", "2a", "10", "a", "b1", "1a2b", ""}

	for _, a := range addrs {
		for _, b := range addrs {
			assert.Equal(t, -Compare(b, a), Compare(a, b), "antisymmetry %q %q", a, b)
			for _, c := range addrs {
				if Compare(a, b) < 0 && Compare(b, c) < 0 {
					assert.Equal(t, -1, Compare(a, c), "transitivity %q %q %q", a, b, c)
				}
			}
		}
	}

	sorted := append([]string(nil), addrs...)
	sort.Slice(sorted, func(i, j int) bool { return Compare(sorted[i], sorted[j]) < 0 })
	assert.Equal(t,
		[]string{"", "1", "1a", "1a1", "1a2", "1a2b", "1a10", "1aa", "1b", "2", "2a", "10", "a", "b1"},
		sorted)
}
