// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns answer markdown into display output.
//
// Answers arrive as growing prefixes of a markdown document. Every update is
// rendered from scratch: while a message is streaming, Complete first closes
// whatever the prefix left open; a finished message is parsed strictly.
//
// Two targets are provided:
//   - HTMLRenderer: goldmark (CommonMark + GFM) with raw inline HTML passed
//     through so citation badges survive, optional chroma highlighting of
//     fenced code and optional bluemonday sanitizing
//   - TerminalRenderer: glamour output with footnote-style citations and a
//     sources footer
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// =============================================================================
// HTML RENDERER
// =============================================================================

// DefaultCodeStyle is the chroma style used when none is configured.
const DefaultCodeStyle = "github"

// HTMLOptions configures an HTMLRenderer.
type HTMLOptions struct {
	// Sanitize runs the output through a bluemonday policy that keeps
	// citation badges.
	Sanitize bool

	// Highlight renders fenced code through chroma with CSS classes.
	Highlight bool

	// CodeStyle names the chroma style used by CSS.
	CodeStyle string
}

// HTMLRenderer renders markdown to HTML fragments. It holds no per-call
// state and is safe for concurrent use.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	code   *codeRenderer
}

// NewHTMLRenderer creates an HTML renderer.
func NewHTMLRenderer(opts HTMLOptions) *HTMLRenderer {
	if opts.CodeStyle == "" {
		opts.CodeStyle = DefaultCodeStyle
	}

	r := &HTMLRenderer{}
	rendererOpts := []renderer.Option{gmhtml.WithUnsafe()}
	if opts.Highlight {
		r.code = newCodeRenderer(opts.CodeStyle)
		rendererOpts = append(rendererOpts,
			renderer.WithNodeRenderers(util.Prioritized(r.code, 100)))
	}

	r.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	if opts.Sanitize {
		r.policy = newPolicy()
	}
	return r
}

// Render converts markdown to HTML. When streaming is true the text is a
// possibly truncated prefix and is completed before parsing.
//
// On failure the escaped text is returned along with the error, so the
// caller always has something to display.
func (r *HTMLRenderer) Render(text string, streaming bool) (string, error) {
	if streaming {
		text = Complete(text)
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return Fallback(text), fmt.Errorf("render markdown: %w", err)
	}

	out := buf.String()
	if r.policy != nil {
		out = r.policy.Sanitize(out)
	}
	return out, nil
}

// CSS returns the stylesheet for highlighted code, or "" when highlighting
// is disabled.
func (r *HTMLRenderer) CSS() (string, error) {
	if r.code == nil {
		return "", nil
	}
	return r.code.css()
}

// Fallback renders text as an escaped paragraph.
func Fallback(text string) string {
	return "<p>" + html.EscapeString(text) + "</p>\n"
}
