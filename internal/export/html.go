// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/LyzrCore/perplexity-oss/internal/model"
	"github.com/LyzrCore/perplexity-oss/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports threads to a standalone HTML page. Answers are
// rendered through the citation and markdown pipeline; everything else is
// escaped text.
type HTMLExporter struct {
	pipeline *render.Pipeline
	options  *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(pipeline *render.Pipeline, opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{pipeline: pipeline, options: opts}
}

// Export converts a thread to HTML format.
func (e *HTMLExporter) Export(t *model.Thread) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	codeCSS, err := e.pipeline.Renderer().CSS()
	if err != nil {
		return nil, fmt.Errorf("code stylesheet: %w", err)
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(t.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"pplx\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", t.CreatedAt.Format(time.RFC3339)))
	sb.WriteString("    <style>\n")
	sb.WriteString(pageCSS)
	sb.WriteString(codeCSS)
	sb.WriteString("    </style>\n")
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t))
	}

	sb.WriteString("        <main class=\"thread\">\n")
	for _, msg := range t.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(t *model.Thread) string {
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(t.Title)))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(t.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(t.Messages)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("            <section class=\"message %s-message\">\n", msg.Role))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", roleLabel(msg.Role)))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.CreatedAt)))
	}
	sb.WriteString("                </div>\n")

	if len(msg.Steps) > 0 {
		sb.WriteString(renderSteps(msg.Steps))
	}

	sb.WriteString("                <div class=\"message-content\">\n")
	if msg.Role == model.RoleAssistant {
		// Pipeline errors are logged there and already replaced by escaped text.
		_, body, _ := e.pipeline.Message(msg)
		sb.WriteString(body)
	} else {
		sb.WriteString(render.Fallback(msg.Content))
	}
	sb.WriteString("                </div>\n")

	if msg.Role == model.RoleAssistant {
		sb.WriteString(renderSources(msg.Sources))
		sb.WriteString(renderRelated(msg.RelatedQueries))
	}

	sb.WriteString("            </section>\n")
	return sb.String()
}

// renderSources lists sources numbered the way citations refer to them.
func renderSources(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("                <ol class=\"sources\">\n")
	for _, src := range sources {
		sb.WriteString(fmt.Sprintf("                    <li><a href=\"%s\" target=\"_blank\" rel=\"noopener noreferrer\">%s</a></li>\n",
			html.EscapeString(src.URL), html.EscapeString(sourceTitle(src))))
	}
	sb.WriteString("                </ol>\n")
	return sb.String()
}

func renderRelated(queries []string) string {
	if len(queries) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("                <ul class=\"related\">\n")
	for _, q := range queries {
		sb.WriteString(fmt.Sprintf("                    <li>%s</li>\n", html.EscapeString(q)))
	}
	sb.WriteString("                </ul>\n")
	return sb.String()
}

func renderSteps(steps []model.Step) string {
	var sb strings.Builder
	sb.WriteString("                <ol class=\"steps\">\n")
	for _, step := range steps {
		class := "step"
		if step.Done {
			class += " done"
		}
		sb.WriteString(fmt.Sprintf("                    <li class=\"%s\">%s", class, html.EscapeString(step.Title)))
		for _, q := range step.Queries {
			sb.WriteString(fmt.Sprintf(" <code>%s</code>", html.EscapeString(q)))
		}
		sb.WriteString("</li>\n")
	}
	sb.WriteString("                </ol>\n")
	return sb.String()
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #191a1a;
            --bg-secondary: #202222;
            --text-primary: #e8e8e6;
            --text-muted: #8d9191;
            --border-color: #3d3f40;
            --accent: #20b8cd;
        }

        .light-theme {
            --bg-primary: #fcfcf9;
            --bg-secondary: #ffffff;
            --text-primary: #13343b;
            --text-muted: #64645e;
            --border-color: #e5e5e0;
            --accent: #1f8a99;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 860px; margin: 0 auto; }
        .header { padding: 24px 0; border-bottom: 1px solid var(--border-color); }
        .header h1 { font-size: 26px; margin-bottom: 8px; }
        .metadata { display: flex; gap: 16px; font-size: 14px; color: var(--text-muted); }

        .message { padding: 20px 0; border-bottom: 1px solid var(--border-color); }
        .message-header { display: flex; justify-content: space-between; font-size: 13px; color: var(--text-muted); margin-bottom: 8px; }
        .user-message .message-content { font-size: 22px; font-weight: 600; }
        .system-message .message-content { color: var(--text-muted); font-style: italic; }
        .message-content p { margin-bottom: 12px; }
        .message-content pre { padding: 12px; overflow-x: auto; border-radius: 6px; border: 1px solid var(--border-color); }
        .message-content code { font-family: var(--font-mono); font-size: 14px; }

        .citation { text-decoration: none; }
        .citation-badge {
            display: inline-block;
            min-width: 1.4em;
            padding: 0 4px;
            margin: 0 1px;
            font-size: 11px;
            line-height: 1.5;
            text-align: center;
            vertical-align: super;
            border-radius: 4px;
            color: var(--text-primary);
            background: var(--border-color);
        }
        a.citation:hover .citation-badge { background: var(--accent); color: var(--bg-primary); }

        .sources, .related, .steps { margin: 12px 0 0 20px; font-size: 14px; }
        .sources a { color: var(--accent); }
        .related { color: var(--text-muted); }
        .steps .done { color: var(--text-muted); }

        @media print {
            body { padding: 0; }
            .message { page-break-inside: avoid; }
        }
`
