// Package render turns note content into display markup.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts note content into markup.
type Renderer interface {
	Markup(content string) (string, error)
}

// Markdown renders content as GitHub-flavoured Markdown. Raw HTML in the
// source is not passed through.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a Markdown renderer.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)}
}

// Markup implements Renderer.
func (m *Markdown) Markup(content string) (string, error) {
	src := strings.TrimSpace(content)
	if src == "" {
		return "", nil
	}
	var b bytes.Buffer
	if err := m.md.Convert([]byte(src), &b); err != nil {
		return "<pre>" + template.HTMLEscapeString(src) + "</pre>", err
	}
	return b.String(), nil
}

// Plain returns content unchanged.
type Plain struct{}

// Markup implements Renderer.
func (Plain) Markup(content string) (string, error) { return content, nil }

// Title returns the first "# " heading of content, or its first non-empty
// line when there is no heading.
func Title(content string) string {
	first := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
		if first == "" && trimmed != "" {
			first = trimmed
		}
	}
	return first
}
