// Package tree derives the outline from a flat set of notes. The hierarchy
// is never stored: sort order and segment prefixes are enough to recover it.
package tree

import (
	"slices"
	"strings"

	"github.com/starford/kasten/internal/address"
	"github.com/starford/kasten/internal/models"
)

type entry struct {
	noteID string
	addr   string
	segs   []address.Segment
}

// Derive returns the outline rows for notes in tree order. Notes whose ID is
// in exclude are left out entirely, including from orphan and ancestor lookups.
func Derive(notes []models.Note, exclude ...string) []models.Row {
	hidden := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		hidden[id] = struct{}{}
	}

	var entries []entry
	for _, n := range notes {
		if _, ok := hidden[n.ID]; ok {
			continue
		}
		for _, a := range n.Addresses {
			entries = append(entries, entry{noteID: n.ID, addr: a, segs: address.Parse(a)})
		}
	}

	slices.SortStableFunc(entries, func(x, y entry) int {
		return address.CompareSegments(x.segs, y.segs)
	})

	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[address.SegmentsToAddress(e.segs)] = struct{}{}
	}
	has := func(segs []address.Segment) bool {
		_, ok := present[address.SegmentsToAddress(segs)]
		return ok
	}

	rows := make([]models.Row, 0, len(entries))
	for _, e := range entries {
		depth := len(e.segs)
		row := models.Row{NoteID: e.noteID, Address: e.addr}
		switch {
		case depth <= 1:
			// Top-level nodes never need a parent.
		case has(e.segs[:depth-1]):
			row.RenderDepth = depth - 1
		default:
			row.IsOrphan = true
			for n := depth - 2; n >= 1; n-- {
				if has(e.segs[:n]) {
					row.RenderDepth = n
					break
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Indent renders rows as text, one per line, each prefixed by unit repeated
// RenderDepth times. Orphans are marked with a trailing "?".
func Indent(rows []models.Row, unit string, label func(models.Row) string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Repeat(unit, r.RenderDepth))
		b.WriteString(r.Address)
		if r.IsOrphan {
			b.WriteString("?")
		}
		if label != nil {
			if l := label(r); l != "" {
				b.WriteString("  ")
				b.WriteString(l)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
