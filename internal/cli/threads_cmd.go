// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LyzrCore/perplexity-oss/internal/export"
	"github.com/LyzrCore/perplexity-oss/internal/storage"
	"github.com/LyzrCore/perplexity-oss/internal/util"
)

const threadsUsage = "pplx threads list|show|open|delete|export [id]"

// HandleThreads handles "pplx threads <subcommand>".
func HandleThreads(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "json", "open", "stdout")
	jsonMode := args.JSON || p.BoolFlag("json")

	ts, err := env.OpenThreads()
	if err != nil {
		return err
	}
	defer ts.Close()

	sub := strings.ToLower(p.Subcommand())
	if sub == "" {
		sub = "list"
	}
	if sub != "list" && p.Positional(1) == "" {
		return ErrMissingArgument("thread id", "pplx threads "+sub+" <id>")
	}
	ctx := context.Background()
	id := p.Positional(1)

	switch sub {
	case "list", "ls":
		limit, err := p.FlagInt("limit", 0)
		if err != nil {
			return err
		}
		return listThreads(ctx, env, ts, limit, jsonMode)

	case "show":
		t, err := ts.Load(ctx, id)
		if err != nil {
			return err
		}
		r, err := env.TerminalRenderer()
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, TitleStyle.Render(t.Title))
		fmt.Fprintln(env.Stdout)
		printThread(env.Stdout, t, r, env.Logger)
		return nil

	case "open":
		t, err := ts.Load(ctx, id)
		if err != nil {
			return err
		}
		st := env.NewStore()
		st.LoadThread(t)
		return runTUI(env, st, nil, t.Title)

	case "delete", "rm":
		if err := ts.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s thread %s\n", SuccessStyle.Render("Deleted"), id)
		return nil

	case "export":
		return exportThread(ctx, env, ts, id, p)

	default:
		return &UsageError{Reason: "unknown threads subcommand: " + sub, Usage: threadsUsage}
	}
}

func listThreads(ctx context.Context, env *Env, ts *storage.ThreadStore, limit int, jsonMode bool) error {
	metas, err := ts.List(ctx, limit)
	if err != nil {
		return err
	}

	if jsonMode {
		data := make([]ThreadData, len(metas))
		for i, m := range metas {
			data[i] = ThreadData{
				ID:           m.ID,
				Title:        m.Title,
				UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
				MessageCount: m.MessageCount,
				Preview:      m.Preview,
				RemoteID:     m.RemoteID,
			}
		}
		return NewJSONResponse("threads list", data).Print(env.Stdout)
	}

	if len(metas) == 0 {
		fmt.Fprintln(env.Stdout, DimStyle.Render("No stored threads."))
		return nil
	}

	idWidth := len("ID")
	for _, m := range metas {
		idWidth = max(idWidth, util.StringWidth(m.ID))
	}
	const (
		updatedWidth = 16
		countWidth   = 4
	)
	titleWidth := max(env.WrapWidth()-idWidth-updatedWidth-countWidth-6, 10)

	header := fmt.Sprintf("%s  %s  %s  %s",
		util.PadWidth("ID", idWidth),
		util.PadWidth("UPDATED", updatedWidth),
		util.PadWidth("MSGS", countWidth),
		"TITLE")
	fmt.Fprintln(env.Stdout, LabelStyle.Render(header))
	for _, m := range metas {
		fmt.Fprintf(env.Stdout, "%s  %s  %s  %s\n",
			util.PadWidth(m.ID, idWidth),
			util.PadWidth(m.UpdatedAt.Local().Format("2006-01-02 15:04"), updatedWidth),
			util.PadWidth(fmt.Sprint(m.MessageCount), countWidth),
			util.TruncateWidth(m.Title, titleWidth))
	}
	return nil
}

func exportThread(ctx context.Context, env *Env, ts *storage.ThreadStore, id string, p *ArgParser) error {
	t, err := ts.Load(ctx, id)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.Theme = env.Config.UI.Theme
	opts.OutputDir = p.FlagOrDefault("out", ".")
	opts.OpenAfterExport = p.BoolFlag("open")

	exporter, err := export.ForFormat(p.FlagOrDefault("format", "html"), env.Pipeline(), opts)
	if err != nil {
		return &UsageError{Reason: err.Error(), Usage: "pplx threads export <id> --format html|markdown|json"}
	}

	if p.BoolFlag("stdout") {
		out, err := exporter.Export(t)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(out)
		return err
	}

	path, err := export.ExportToFile(t, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "%s %s\n", SuccessStyle.Render("Exported"), path)
	return nil
}
