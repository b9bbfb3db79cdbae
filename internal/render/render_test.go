// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/citation"
	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// =============================================================================
// HTML RENDERER TESTS
// =============================================================================

func TestHTMLRenderer_StreamingVersusFinal(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{})

	streaming, err := r.Render("Hello **wor", true)
	require.NoError(t, err)
	assert.Contains(t, streaming, "<strong>wor</strong>")
	assert.NotContains(t, streaming, "**")

	final, err := r.Render("Hello **wor", false)
	require.NoError(t, err)
	assert.Contains(t, final, "**wor")
}

func TestHTMLRenderer_StreamingKeepsLessThanText(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{})

	out, err := r.Render("The formula a<b holds for all values", true)
	require.NoError(t, err)
	assert.Contains(t, out, "a&lt;b holds for all values")

	out, err = r.Render("**a *b** c", true)
	require.NoError(t, err)
	assert.NotContains(t, out, "c</em>**")
}

func TestHTMLRenderer_PassesBadgesThrough(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{})
	text := citation.Rewrite("See [2] and [10].", []model.Source{{URL: "u1"}, {URL: "u2"}})

	out, err := r.Render(text, false)
	require.NoError(t, err)
	assert.Contains(t, out, `href="u2"`)
	assert.Contains(t, out, `href=""`)
	assert.Contains(t, out, `<span class="citation-badge">10</span>`)
	assert.Equal(t, 2, strings.Count(out, `class="citation-badge"`))
}

func TestHTMLRenderer_LeavesMarkdownLinks(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{})
	text := citation.Rewrite("Check [1](http://x.com) and [1].", []model.Source{{URL: "u1"}})

	out, err := r.Render(text, false)
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="http://x.com">1</a>`)
	assert.Contains(t, out, `href="u1"`)
}

func TestHTMLRenderer_UnterminatedFence(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{})

	out, err := r.Render("Example:\n\n```go\nfmt.Println(", true)
	require.NoError(t, err)
	assert.Contains(t, out, `<pre><code class="language-go">`)
	assert.NotContains(t, out, "```")
}

func TestHTMLRenderer_Highlight(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{Highlight: true, CodeStyle: "monokai"})

	out, err := r.Render("```go\nfunc main() {}\n```\n", false)
	require.NoError(t, err)
	assert.Contains(t, out, "chroma")
	assert.Contains(t, out, "main")

	css, err := r.CSS()
	require.NoError(t, err)
	assert.Contains(t, css, ".chroma")

	plain := NewHTMLRenderer(HTMLOptions{})
	css, err = plain.CSS()
	require.NoError(t, err)
	assert.Empty(t, css)
}

func TestHTMLRenderer_Sanitize(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{Sanitize: true})
	text := "<script>alert(1)</script>\n\nSee " + citation.HTMLBadge("1", "http://a") + "."

	out, err := r.Render(text, false)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert(1)")
	assert.Contains(t, out, `href="http://a"`)
	assert.Contains(t, out, `class="citation-badge"`)
	assert.Contains(t, out, `target="_blank"`)
}

func TestHTMLRenderer_Deterministic(t *testing.T) {
	r := NewHTMLRenderer(HTMLOptions{Highlight: true, Sanitize: true})
	text := "# T\n\nSome *text* with `code` and a [link](https://x.com).\n"

	a, err := r.Render(text, true)
	require.NoError(t, err)
	b, err := r.Render(text, true)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFallback(t *testing.T) {
	assert.Equal(t, "<p>a &lt;b&gt;</p>\n", Fallback("a <b>"))
}

// =============================================================================
// PIPELINE TESTS
// =============================================================================

func TestPipeline_StreamingDeltas(t *testing.T) {
	p := NewPipeline(NewHTMLRenderer(HTMLOptions{}), zap.NewNop())
	msg := model.NewAssistantMessage()
	msg.Sources = []model.Source{{URL: "http://a"}}

	var out string
	for _, content := range []string{"Hello [1", "Hello [1]", "Hello [1] world"} {
		msg.Content = content
		state, html, err := p.Message(msg)
		require.NoError(t, err)
		assert.True(t, state.IsStreaming)
		assert.NotContains(t, html, "[")
		out = html
	}

	msg.IsStreaming = false
	state, final, err := p.Message(msg)
	require.NoError(t, err)
	assert.False(t, state.IsStreaming)
	assert.Equal(t, out, final)
	assert.Equal(t, 1, strings.Count(final, `class="citation-badge"`))
	assert.Contains(t, final, `href="http://a"`)
	assert.Contains(t, final, "world")
}

func TestStateOf(t *testing.T) {
	msg := model.NewAssistantMessage()
	msg.Content = "A [1]"
	msg.Sources = []model.Source{{URL: "u"}}

	state := StateOf(msg)
	assert.Equal(t, "A "+citation.HTMLBadge("1", "u"), state.RewrittenText)
	assert.True(t, state.IsStreaming)
}

// =============================================================================
// TERMINAL RENDERER TESTS
// =============================================================================

func TestFootnoteMarkdown(t *testing.T) {
	msg := model.NewAssistantMessage()
	msg.Content = "Go is fast [1] and **simple [2"
	msg.Sources = []model.Source{{URL: "https://go.dev", Title: "The Go [Site]"}}

	assert.Equal(t, "Go is fast ⁽¹⁾ and **simple 2**", FootnoteMarkdown(msg))

	msg.Content = "Go is fast [1]."
	msg.IsStreaming = false
	got := FootnoteMarkdown(msg)
	assert.True(t, strings.HasPrefix(got, "Go is fast ⁽¹⁾."))
	assert.Contains(t, got, "**Sources**")
	assert.Contains(t, got, `1. [The Go \[Site\]](https://go.dev)`)
}

func TestSourcesFooter(t *testing.T) {
	assert.Empty(t, SourcesFooter(nil))

	got := SourcesFooter([]model.Source{{URL: "u1"}, {URL: "u2", Title: "Two"}})
	assert.Contains(t, got, "1. [u1](u1)\n")
	assert.Contains(t, got, "2. [Two](u2)\n")
}

func TestTerminalRenderer_Render(t *testing.T) {
	r, err := NewTerminalRenderer(TerminalOptions{Theme: "plain", WordWrap: 80})
	require.NoError(t, err)
	assert.Equal(t, "notty", r.Style())

	msg := model.NewAssistantMessage()
	msg.Content = "Go is fast [1]."
	msg.Sources = []model.Source{{URL: "https://go.dev", Title: "Go"}}
	msg.IsStreaming = false

	out, err := r.Render(msg)
	require.NoError(t, err)
	assert.Contains(t, out, "⁽¹⁾")
	assert.Contains(t, out, "Sources")
	assert.Contains(t, out, "https://go.dev")
}

func TestResolveStyle(t *testing.T) {
	assert.Equal(t, "dark", ResolveStyle("dark"))
	assert.Equal(t, "light", ResolveStyle("LIGHT"))
	assert.Equal(t, "notty", ResolveStyle("plain"))
	assert.Equal(t, "dark", ResolveStyle("unknown"))
	assert.Contains(t, []string{"dark", "light"}, ResolveStyle("auto"))
}
