package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/kasten/internal/notestore"
	"github.com/starford/kasten/internal/testutil"
)

func testServer(t *testing.T) (*Server, *notestore.Store) {
	t.Helper()
	store, _ := testutil.TestStore(t)
	return New(store, "1"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions by name.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_tree":
		result, err = srv.getTree(ctx, req)
	case "resolve_address":
		result, err = srv.resolveAddress(ctx, req)
	case "check_address":
		result, err = srv.checkAddress(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "get_address_grammar":
		result, err = srv.getAddressGrammar(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"addresses": "1a, 2",
		"content":   "# Test\nHello",
	})
	if text := resultText(r); text != "created: n1 at 1a, 2" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"id": "n1"})
	var note struct {
		ID        string   `json:"id"`
		Addresses []string `json:"addresses"`
		Content   string   `json:"content"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatalf("read result not JSON: %v", err)
	}
	if note.Content != "# Test\nHello" || len(note.Addresses) != 2 {
		t.Errorf("read note = %+v", note)
	}
}

func TestCreateNote_DefaultAddress(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{"content": "x"})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if _, taken := store.IsAddressTaken("1", ""); !taken {
		t.Error("default address 1 should be used")
	}

	// The default is now taken, so a second addressless create conflicts.
	r = callTool(t, srv, "create_note", map[string]interface{}{"content": "y"})
	if !r.IsError {
		t.Error("expected conflict on default address")
	}
}

func TestCreateNote_InvalidAddress(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"addresses": "2,b3",
		"content":   "x",
	})
	if !r.IsError {
		t.Fatal("expected error for invalid address")
	}
	if !strings.Contains(resultText(r), `"b3"`) {
		t.Errorf("error should name b3: %q", resultText(r))
	}
	if len(store.Notes()) != 0 {
		t.Error("failed create must not add a note")
	}
}

func TestGetTree(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]interface{}{"addresses": "1", "content": "# Root"})
	callTool(t, srv, "create_note", map[string]interface{}{"addresses": "1a", "content": "Child"})
	callTool(t, srv, "create_note", map[string]interface{}{"addresses": "3b2", "content": "Stray"})

	r := callTool(t, srv, "get_tree", map[string]interface{}{})
	want := "1  [n1] Root\n  1a  [n2] Child\n3b2?  [n3] Stray\n"
	if text := resultText(r); text != want {
		t.Errorf("tree =\n%s\nwant\n%s", text, want)
	}

	r = callTool(t, srv, "get_tree", map[string]interface{}{"exclude": "n1"})
	if text := resultText(r); !strings.HasPrefix(text, "1a?") {
		t.Errorf("tree without n1 = %q", text)
	}
}

func TestGetTree_Empty(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_tree", map[string]interface{}{})
	if text := resultText(r); text != "outline is empty" {
		t.Errorf("empty tree = %q", text)
	}
}

func TestResolveAddress(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]interface{}{"addresses": "1,1a", "content": "x"})

	r := callTool(t, srv, "resolve_address", map[string]interface{}{"address": "1a9"})
	var resp map[string]any
	_ = json.Unmarshal([]byte(resultText(r)), &resp)
	if resp["address"] != "1a" || resp["exact"] != false {
		t.Errorf("resolve = %v", resp)
	}
}

func TestResolveAddress_Empty(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "resolve_address", map[string]interface{}{"address": "1"})
	if !r.IsError {
		t.Error("expected error on empty outline")
	}
}

func TestCheckAddress(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]interface{}{"addresses": "1a", "content": "x"})

	cases := map[string]string{
		"01A": "taken: 01a is held by note n1",
		"1b":  "free: 1b",
	}
	for in, want := range cases {
		r := callTool(t, srv, "check_address", map[string]interface{}{"address": in})
		if text := resultText(r); text != want {
			t.Errorf("check %q = %q, want %q", in, text, want)
		}
	}

	r := callTool(t, srv, "check_address", map[string]interface{}{"address": "1a", "exclude": "n1"})
	if text := resultText(r); text != "free: 1a" {
		t.Errorf("check with exclude = %q", text)
	}

	r = callTool(t, srv, "check_address", map[string]interface{}{"address": "a1"})
	if text := resultText(r); !strings.Contains(text, "must start with a number") {
		t.Errorf("check invalid = %q", text)
	}
}

func TestUpdateAndDeleteNote(t *testing.T) {
	srv, store := testServer(t)
	callTool(t, srv, "create_note", map[string]interface{}{"addresses": "1", "content": "v1"})

	r := callTool(t, srv, "update_note", map[string]interface{}{
		"id":        "n1",
		"addresses": "1,1a",
		"content":   "v2",
	})
	if text := resultText(r); text != "updated: n1 at 1, 1a" {
		t.Errorf("update = %q", text)
	}

	r = callTool(t, srv, "delete_note", map[string]interface{}{"id": "n1"})
	if text := resultText(r); text != "deleted: n1" {
		t.Errorf("delete = %q", text)
	}
	if len(store.Notes()) != 0 {
		t.Error("note should be gone")
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetAddressGrammar(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_address_grammar", map[string]interface{}{})
	if !strings.HasPrefix(resultText(r), "# Kasten Address Grammar") {
		t.Errorf("grammar = %q", resultText(r))
	}
}

func TestCreateNote_PersistsToFile(t *testing.T) {
	store, file := testutil.TestFileStore(t)
	srv := New(store, "")

	r := callTool(t, srv, "create_note", map[string]interface{}{"addresses": "4c", "content": "kept"})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}

	reopened := notestore.Open(context.Background(), file, testutil.Logger())
	notes := reopened.Notes()
	if len(notes) != 1 || notes[0].Addresses[0] != "4c" || notes[0].Content != "kept" {
		t.Errorf("reopened notes = %+v", notes)
	}
}

func TestCreateNote_NoDefaultAddress(t *testing.T) {
	store, _ := testutil.TestStore(t)
	srv := New(store, "")

	r := callTool(t, srv, "create_note", map[string]interface{}{"content": "x"})
	if !r.IsError || !strings.Contains(resultText(r), "at least one address") {
		t.Errorf("create without any address = %q", resultText(r))
	}
}
