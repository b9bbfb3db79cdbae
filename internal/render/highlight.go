// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// =============================================================================
// CODE HIGHLIGHTING
// =============================================================================

// codeRenderer renders fenced code blocks through chroma.
type codeRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newCodeRenderer(styleName string) *codeRenderer {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &codeRenderer{
		style:     style,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}
	language := string(n.Language(source))

	if err := r.highlight(w, language, code.String()); err != nil {
		writePlainCode(w, language, code.String())
	}
	return ast.WalkSkipChildren, nil
}

// highlight writes code as chroma HTML. Unknown languages fall through to
// content analysis, then to the plain-text lexer.
func (r *codeRenderer) highlight(w util.BufWriter, language, code string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}
	return r.formatter.Format(w, r.style, iterator)
}

func (r *codeRenderer) css() (string, error) {
	var b strings.Builder
	if err := r.formatter.WriteCSS(&b, r.style); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writePlainCode(w util.BufWriter, language, code string) {
	if language != "" {
		_, _ = w.WriteString(`<pre><code class="language-` + html.EscapeString(language) + `">`)
	} else {
		_, _ = w.WriteString("<pre><code>")
	}
	_, _ = w.WriteString(html.EscapeString(code))
	_, _ = w.WriteString("</code></pre>\n")
}
