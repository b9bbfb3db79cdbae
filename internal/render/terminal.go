// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/LyzrCore/perplexity-oss/internal/citation"
	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// TerminalOptions configures a TerminalRenderer.
type TerminalOptions struct {
	// Theme is "dark", "light", "auto" or "plain".
	Theme string

	// WordWrap is the wrap width in cells; 0 disables wrapping.
	WordWrap int
}

// TerminalRenderer renders messages for a terminal through glamour.
// Citations become superscript footnotes and finished messages get a
// numbered sources footer.
type TerminalRenderer struct {
	mu sync.Mutex // glamour reuses an internal buffer per renderer
	tr *glamour.TermRenderer

	style string
	width int
}

// NewTerminalRenderer creates a terminal renderer.
func NewTerminalRenderer(opts TerminalOptions) (*TerminalRenderer, error) {
	style := ResolveStyle(opts.Theme)
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(opts.WordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return &TerminalRenderer{tr: tr, style: style, width: opts.WordWrap}, nil
}

// ResolveStyle maps a configured theme onto a glamour standard style name.
// "auto" asks the terminal for its background color.
func ResolveStyle(theme string) string {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "light":
		return "light"
	case "plain", "notty":
		return "notty"
	case "auto", "":
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	default:
		return "dark"
	}
}

// Style returns the resolved glamour style.
func (r *TerminalRenderer) Style() string {
	return r.style
}

// Width returns the configured wrap width.
func (r *TerminalRenderer) Width() int {
	return r.width
}

// Render renders msg from its full current content. On failure the
// footnoted markdown is returned along with the error.
func (r *TerminalRenderer) Render(msg *model.Message) (string, error) {
	text := FootnoteMarkdown(msg)

	r.mu.Lock()
	out, err := r.tr.Render(text)
	r.mu.Unlock()
	if err != nil {
		return text, fmt.Errorf("render terminal markdown: %w", err)
	}
	return out, nil
}

// FootnoteMarkdown rewrites citations as superscript footnotes. A streaming
// message is completed for display; a finished one gets its sources footer.
func FootnoteMarkdown(msg *model.Message) string {
	text := citation.Cleanup(citation.Substitute(msg.Content, msg.Sources, citation.FootnoteBadge))
	if msg.IsStreaming {
		return Complete(text)
	}
	return text + SourcesFooter(msg.Sources)
}

var linkTextEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

// SourcesFooter lists sources as a numbered markdown list, numbered the way
// citations refer to them. It is empty when there are no sources.
func SourcesFooter(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n---\n\n**Sources**\n\n")
	for i, src := range sources {
		title := strings.TrimSpace(src.Title)
		if title == "" {
			title = src.URL
		}
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, linkTextEscaper.Replace(title), src.URL)
	}
	return b.String()
}
