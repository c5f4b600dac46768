package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kasten/internal/address"
	"github.com/starford/kasten/internal/apperr"
	"github.com/starford/kasten/internal/models"
	"github.com/starford/kasten/internal/navigate"
	"github.com/starford/kasten/internal/notestore"
	"github.com/starford/kasten/internal/render"
	"github.com/starford/kasten/internal/sse"
	"github.com/starford/kasten/internal/tree"
)

// Notifier receives change and navigation events. *sse.Broker satisfies it.
type Notifier interface {
	Navigate(data any)
	PublishNoteEvent(kind, id string)
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Store           *notestore.Store
	Renderer        render.Renderer // nil means plain text
	Notifier        Notifier        // nil disables events
	DefaultAddress  string
	ResolveDebounce time.Duration
}

// Handler holds API route handlers.
type Handler struct {
	store    *notestore.Store
	renderer render.Renderer
	notifier Notifier
	nav      *navigate.Navigator
	defAddr  string
}

// NewHandler creates a new Handler. Call Close to cancel pending navigation.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		store:    cfg.Store,
		renderer: cfg.Renderer,
		notifier: cfg.Notifier,
		defAddr:  cfg.DefaultAddress,
	}
	if h.renderer == nil {
		h.renderer = render.Plain{}
	}
	h.nav = navigate.NewNavigator(func() []models.Row { return h.store.Rows() }, h.publishNavigate, cfg.ResolveDebounce)
	return h
}

// Close cancels any pending debounced resolution.
func (h *Handler) Close() {
	h.nav.Close()
}

func (h *Handler) publishNavigate(input string, row models.Row) {
	if h.notifier == nil {
		return
	}
	h.notifier.Navigate(ResolveResponse{
		Input: input,
		Exact: address.Key(input) == address.Key(row.Address),
		Row:   rowDTO(row),
	})
}

func (h *Handler) notify(kind, id string) {
	if h.notifier != nil {
		h.notifier.PublishNoteEvent(kind, id)
	}
}

func excludeParam(r *http.Request) []string {
	raw := r.URL.Query().Get("exclude")
	if raw == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func decodeNoteRequest(w http.ResponseWriter, r *http.Request) (NoteRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 2<<20)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return req, false
	}
	return req, true
}

// Tree handles GET /api/tree.
//
//	@Summary		Derived outline in tree order
//	@Tags			tree
//	@Produce		json
//	@Param			exclude	query		string	false	"Comma-separated note ids to hide"
//	@Success		200		{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	notes := h.store.Notes()
	rows := tree.Derive(notes, excludeParam(r)...)

	byID := make(map[string]models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	rendered := make(map[string]string, len(notes))

	out := make([]RowDTO, len(rows))
	for i, row := range rows {
		dto := rowDTO(row)
		n := byID[row.NoteID]
		dto.Title = render.Title(n.Content)
		html, ok := rendered[n.ID]
		if !ok {
			var err error
			html, err = h.renderer.Markup(n.Content)
			if err != nil {
				slog.Warn("render failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			}
			rendered[n.ID] = html
		}
		dto.HTML = html
		out[i] = dto
	}
	writeJSON(w, http.StatusOK, TreeResponse{Rows: out})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		All notes in creation order
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	notes := h.store.Notes()
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note at one or more addresses
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNoteRequest(w, r)
	if !ok {
		return
	}
	note, err := h.store.Create(r.Context(), req.Addresses, req.Content)
	if err != nil {
		writeStoreError(w, "create note", err)
		return
	}
	h.notify(sse.Created, note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note's addresses and content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note id"
//	@Param			body	body		NoteRequest	true	"New addresses and content"
//	@Success		200		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeNoteRequest(w, r)
	if !ok {
		return
	}
	note, err := h.store.Update(r.Context(), id, req.Addresses, req.Content)
	if err != nil {
		writeStoreError(w, "update note", err)
		return
	}
	h.notify(sse.Updated, note.ID)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}. Deleting a missing note succeeds.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, getErr := h.store.Get(id)
	if err := h.store.Remove(r.Context(), id); err != nil {
		writeStoreError(w, "delete note", err)
		return
	}
	if getErr == nil {
		h.notify(sse.Deleted, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckAddress handles GET /api/addresses/{address}.
//
//	@Summary		Parse an address and look up its owner
//	@Tags			addresses
//	@Produce		json
//	@Param			address	path		string	true	"Address to check"
//	@Param			exclude	query		string	false	"Note id to ignore when looking up the owner"
//	@Success		200		{object}	AddressInfo
//	@Security		BearerAuth
//	@Router			/addresses/{address} [get]
func (h *Handler) CheckAddress(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	canonical := address.Canonicalize(raw)
	info := AddressInfo{
		Address:   raw,
		Canonical: canonical,
		Key:       address.Key(canonical),
		Depth:     address.Depth(canonical),
	}
	if err := address.Validate(canonical); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			info.Reason = ve.Reason
		}
	} else {
		info.Valid = true
	}
	if parent, ok := address.Parent(canonical); ok {
		info.Parent = parent
	}
	exclude := r.URL.Query().Get("exclude")
	if owner, taken := h.store.IsAddressTaken(canonical, exclude); taken {
		info.Owner = &owner
	}
	writeJSON(w, http.StatusOK, info)
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Nearest existing row for a typed address
//	@Tags			tree
//	@Produce		json
//	@Param			address	query		string	true	"Typed address"
//	@Param			exclude	query		string	false	"Comma-separated note ids to hide"
//	@Success		200		{object}	ResolveResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("address")
	row, ok := h.store.Resolve(input, excludeParam(r)...)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("outline is empty"))
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{
		Input: input,
		Exact: address.Key(input) == address.Key(row.Address),
		Row:   rowDTO(row),
	})
}

// Cursor handles POST /api/cursor. The resolution is debounced and delivered
// as an SSE "navigate" event.
//
//	@Summary		Report the typed address for live navigation
//	@Tags			tree
//	@Accept			json
//	@Param			body	body	CursorRequest	true	"Typed address"
//	@Success		202		"Scheduled"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cursor [post]
func (h *Handler) Cursor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	var req CursorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.nav.Move(req.Address)
	w.WriteHeader(http.StatusAccepted)
}

// Settings handles GET /api/settings.
//
//	@Summary		UI settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) Settings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SettingsResponse{DefaultAddress: h.defAddr})
}
