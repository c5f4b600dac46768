// Package models defines the domain types for Kasten.
package models

// Note is a zettel. It can appear in the outline at several addresses,
// all of which share its content.
type Note struct {
	ID        string   `json:"id"`
	Addresses []string `json:"addresses"`
	Content   string   `json:"content"`
}

// Clone returns a copy that shares no slices with n.
func (n Note) Clone() Note {
	n.Addresses = append([]string(nil), n.Addresses...)
	return n
}

// Row is one line of the derived outline: a note shown at one of its addresses.
type Row struct {
	NoteID      string `json:"note_id"`
	Address     string `json:"address"`
	RenderDepth int    `json:"depth"`
	IsOrphan    bool   `json:"orphan"`
}
