package address

import "strings"

// Compare orders two addresses and returns -1, 0 or +1.
//
// Segments are compared pairwise over the common prefix: numbers by value,
// letters as strings, and a Numeric segment always sorts before an Alpha one.
// When the common prefix is equal the shorter address sorts first, so a node
// precedes its descendants.
func Compare(a, b string) int {
	return CompareSegments(Parse(a), Parse(b))
}

// CompareSegments is Compare over already parsed segments.
func CompareSegments(a, b []Segment) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := compareSegment(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareSegment(x, y Segment) int {
	if x.Kind != y.Kind {
		if x.Kind == Numeric {
			return -1
		}
		return 1
	}
	if x.Kind == Numeric {
		// Text has no leading zeros, so a longer digit run is a larger value.
		if len(x.Text) != len(y.Text) {
			if len(x.Text) < len(y.Text) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(x.Text, y.Text)
}
