// Package navigate finds where in the outline a typed address belongs, so a
// view can jump there even when the address does not exist yet.
package navigate

import (
	"github.com/starford/kasten/internal/address"
	"github.com/starford/kasten/internal/models"
)

// Resolve picks the row to navigate to for target. rows must be in tree order.
//
// An exact match wins. Otherwise the longest existing prefix of target (its
// nearest would-be ancestor) is used. Failing that, Resolve returns the last
// row that sorts at or before target, or the first row when target sorts
// before everything. ok is false only when rows is empty.
func Resolve(rows []models.Row, target string) (models.Row, bool) {
	if len(rows) == 0 {
		return models.Row{}, false
	}

	byKey := make(map[string]int, len(rows))
	for i, r := range rows {
		k := address.Key(r.Address)
		if _, dup := byKey[k]; !dup {
			byKey[k] = i
		}
	}

	segs := address.Parse(target)
	if i, ok := byKey[address.SegmentsToAddress(segs)]; ok && len(segs) > 0 {
		return rows[i], true
	}
	for n := len(segs) - 1; n >= 1; n-- {
		if i, ok := byKey[address.SegmentsToAddress(segs[:n])]; ok {
			return rows[i], true
		}
	}

	best := 0
	for i, r := range rows {
		if address.CompareSegments(address.Parse(r.Address), segs) <= 0 {
			best = i
		}
	}
	return rows[best], true
}
