// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/export"
	"github.com/LyzrCore/perplexity-oss/internal/model"
	"github.com/LyzrCore/perplexity-oss/internal/render"
)

const renderUsage = "pplx render [file|-] [--format terminal|html|page|markdown] [--sources FILE] [--streaming]"

// HandleRender handles "pplx render". The input is a message JSON object
// ({"content": ..., "sources": [...]}) or raw markdown.
func HandleRender(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "streaming")

	data, err := readInput(env, p.Positional(0))
	if err != nil {
		return err
	}
	msg := parseMessage(data)

	if path := p.Flag("sources"); path != "" {
		sources, err := readSources(path)
		if err != nil {
			return err
		}
		msg.Sources = sources
	}
	msg.IsStreaming = p.BoolFlag("streaming")

	format := p.Flag("format")
	if format == "" {
		format = "html"
		if env.TTY {
			format = "terminal"
		}
	}

	out, err := renderMessage(env, msg, strings.ToLower(format))
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.Stdout, out)
	return err
}

// renderMessage renders msg in format. Render failures are logged and the
// fallback output is used; only unknown formats are errors.
func renderMessage(env *Env, msg *model.Message, format string) (string, error) {
	switch format {
	case "html":
		_, out, _ := env.Pipeline().Message(msg)
		return out, nil

	case "page":
		thread := model.NewThread()
		thread.AddMessage(msg)
		opts := export.DefaultOptions()
		opts.Theme = env.Config.UI.Theme
		out, err := export.NewHTMLExporter(env.Pipeline(), opts).Export(thread)
		if err != nil {
			return "", err
		}
		return string(out), nil

	case "terminal":
		r, err := env.TerminalRenderer()
		if err != nil {
			return "", err
		}
		out, err := r.Render(msg)
		if err != nil {
			env.Logger.Warn("terminal render failed", zap.Error(err))
		}
		return out, nil

	case "markdown", "md":
		return render.StateOf(msg).RewrittenText + "\n", nil

	default:
		return "", &UsageError{Reason: "unknown format: " + format, Usage: renderUsage}
	}
}

func readInput(env *Env, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// parseMessage decodes a message object, falling back to treating data as
// markdown content.
func parseMessage(data []byte) *model.Message {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var msg model.Message
		if err := json.Unmarshal(trimmed, &msg); err == nil && msg.Content != "" {
			if msg.Role == "" {
				msg.Role = model.RoleAssistant
			}
			return &msg
		}
	}
	return model.NewMessage(model.RoleAssistant, string(data))
}

func readSources(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	var sources []model.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("decode sources %s: %w", path, err)
	}
	return sources, nil
}
