// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Kasten outline for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kasten/internal/address"
	"github.com/starford/kasten/internal/apperr"
	"github.com/starford/kasten/internal/models"
	"github.com/starford/kasten/internal/notestore"
	"github.com/starford/kasten/internal/render"
	"github.com/starford/kasten/internal/tree"
)

const grammarURI = "kasten://address-grammar"

// Server wraps the MCP server with Kasten tools.
type Server struct {
	mcp            *server.MCPServer
	store          *notestore.Store
	defaultAddress string
}

// New creates a new MCP server with all Kasten tools registered.
// defaultAddress is used by create_note when no address is given.
func New(store *notestore.Store, defaultAddress string) *Server {
	s := &Server{store: store, defaultAddress: defaultAddress}

	s.mcp = server.NewMCPServer(
		"Kasten",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the whole outline in tree order, one address per line, "+
			"indented by depth. Orphans (notes whose parent address is empty) end with '?'."),
		mcp.WithString("exclude", mcp.Description("Optional comma-separated note ids to hide")),
	), s.getTree)

	s.mcp.AddTool(mcp.NewTool("resolve_address",
		mcp.WithDescription("Find the existing row nearest to a typed address: exact match, "+
			"else its deepest existing ancestor, else the closest preceding row."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Address to resolve (e.g. 1a5)")),
	), s.resolveAddress)

	s.mcp.AddTool(mcp.NewTool("check_address",
		mcp.WithDescription("Check an address against the grammar and report which note, if any, holds it."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Address to check")),
		mcp.WithString("exclude", mcp.Description("Optional note id to ignore, e.g. the note being edited")),
	), s.checkAddress)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's addresses and full Markdown content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note at one or more addresses. Addresses MUST follow the "+
			"Kasten address grammar; read it first via get_address_grammar or the "+
			grammarURI+" resource."),
		mcp.WithString("addresses", mcp.Description("Comma-separated addresses (defaults to the configured default address)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note's addresses and content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("addresses", mcp.Required(), mcp.Description("Comma-separated addresses")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note and all of its addresses."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_address_grammar",
		mcp.WithDescription("Returns the Kasten address grammar. "+
			"Call this before creating or moving notes to pick valid addresses."),
	), s.getAddressGrammar)

	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Address Grammar",
			mcp.WithResourceDescription("How addresses are written, ordered and nested."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("note not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes := s.store.Notes()
	rows := tree.Derive(notes, splitList(req.GetString("exclude", ""))...)
	if len(rows) == 0 {
		return mcp.NewToolResultText("outline is empty"), nil
	}

	titles := make(map[string]string, len(notes))
	for _, n := range notes {
		titles[n.ID] = render.Title(n.Content)
	}
	out := tree.Indent(rows, "  ", func(r models.Row) string {
		return fmt.Sprintf("[%s] %s", r.NoteID, titles[r.NoteID])
	})
	return mcp.NewToolResultText(out), nil
}

func (s *Server) resolveAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, ok := s.store.Resolve(target)
	if !ok {
		return mcp.NewToolResultError("outline is empty"), nil
	}
	return jsonResult(map[string]any{
		"input":   target,
		"exact":   address.Key(target) == address.Key(row.Address),
		"address": row.Address,
		"note_id": row.NoteID,
		"depth":   row.RenderDepth,
		"orphan":  row.IsOrphan,
	}), nil
}

func (s *Server) checkAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	canonical := address.Canonicalize(raw)
	if err := address.Validate(canonical); err != nil {
		return mcp.NewToolResultText(err.Error()), nil
	}
	if owner, taken := s.store.IsAddressTaken(canonical, req.GetString("exclude", "")); taken {
		return mcp.NewToolResultText(fmt.Sprintf("taken: %s is held by note %s", canonical, owner.ID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("free: %s", canonical)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.store.Get(id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	addrs := splitList(req.GetString("addresses", ""))
	if len(addrs) == 0 && s.defaultAddress != "" {
		addrs = []string{s.defaultAddress}
	}

	note, err := s.store.Create(ctx, addrs, content)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s at %s", note.ID, strings.Join(note.Addresses, ", "))), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawAddrs, err := req.RequireString("addresses")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.store.Update(ctx, id, splitList(rawAddrs), content)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s at %s", note.ID, strings.Join(note.Addresses, ", "))), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getAddressGrammar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AddressGrammar), nil
}

func (s *Server) readGrammarResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     AddressGrammar,
		},
	}, nil
}
