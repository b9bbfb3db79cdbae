// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/model"
	"github.com/LyzrCore/perplexity-oss/internal/render"
)

// printThread writes a thread the way the TUI shows it, without the chrome.
func printThread(w io.Writer, t *model.Thread, r *render.TerminalRenderer, logger *zap.Logger) {
	for i, msg := range t.Messages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		switch msg.Role {
		case model.RoleUser:
			fmt.Fprintln(w, QueryStyle.Render("> "+msg.Content))
		case model.RoleAssistant:
			printAnswer(w, msg, r, logger)
		default:
			fmt.Fprintln(w, NoticeStyle.Render(msg.Content))
		}
	}
}

func printAnswer(w io.Writer, msg *model.Message, r *render.TerminalRenderer, logger *zap.Logger) {
	for i, step := range msg.Steps {
		mark := "[ ]"
		if step.Done {
			mark = "[x]"
		}
		line := fmt.Sprintf("  %s Step %d: %s", mark, i+1, step.Title)
		if len(step.Queries) > 0 {
			line += " (" + strings.Join(step.Queries, ", ") + ")"
		}
		fmt.Fprintln(w, DimStyle.Render(line))
	}

	out, err := r.Render(msg)
	if err != nil {
		logger.Warn("terminal render failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
	fmt.Fprint(w, out)

	if len(msg.RelatedQueries) > 0 {
		fmt.Fprintln(w, LabelStyle.Render("Related"))
		for _, q := range msg.RelatedQueries {
			fmt.Fprintln(w, "  - "+q)
		}
	}
}
