package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kasten/internal/models"
)

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest struct {
	Addresses []string `json:"addresses" example:"1a,3b2" validate:"required"`
	Content   string   `json:"content" example:"# Hello\nWorld"`
}

// Validate checks the request shape. Address grammar is checked by the store
// so that the first bad address is reported in input order.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addresses, validation.Required),
		validation.Field(&r.Content, validation.Length(0, 1<<20)),
	)
}

// CursorRequest reports where the user's cursor or typed address is.
type CursorRequest struct {
	Address string `json:"address" example:"1a5" validate:"required"`
}

// Validate checks the request shape.
func (r CursorRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.Required),
	)
}

// NoteResponse is a single note.
type NoteResponse = models.Note

// NoteListResponse wraps all notes in creation order.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// RowDTO is one outline row with its rendered content.
type RowDTO struct {
	NoteID  string `json:"note_id" validate:"required"`
	Address string `json:"address" example:"1a2" validate:"required"`
	Depth   int    `json:"depth" example:"2"`
	Orphan  bool   `json:"orphan"`
	Title   string `json:"title,omitempty" example:"Hello"`
	HTML    string `json:"html,omitempty"`
}

// TreeResponse wraps the derived outline.
type TreeResponse struct {
	Rows []RowDTO `json:"rows" validate:"required"`
}

// AddressInfo describes how an address parses and who holds it.
type AddressInfo struct {
	Address   string       `json:"address" example:"01A2"`
	Canonical string       `json:"canonical" example:"01a2"`
	Key       string       `json:"key" example:"1a2"`
	Valid     bool         `json:"valid"`
	Reason    string       `json:"reason,omitempty"`
	Depth     int          `json:"depth" example:"3"`
	Parent    string       `json:"parent,omitempty" example:"1a"`
	Owner     *models.Note `json:"owner,omitempty"`
}

// ResolveResponse is the navigation target for a typed address.
type ResolveResponse struct {
	Input string `json:"input" example:"1a5"`
	Exact bool   `json:"exact"`
	Row   RowDTO `json:"row"`
}

// SettingsResponse carries settings the UI needs.
type SettingsResponse struct {
	DefaultAddress string `json:"default_address" example:"1"`
}

func rowDTO(r models.Row) RowDTO {
	return RowDTO{NoteID: r.NoteID, Address: r.Address, Depth: r.RenderDepth, Orphan: r.IsOrphan}
}
