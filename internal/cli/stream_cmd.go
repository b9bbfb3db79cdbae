// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/model"
	"github.com/LyzrCore/perplexity-oss/internal/store"
	"github.com/LyzrCore/perplexity-oss/internal/stream"
	"github.com/LyzrCore/perplexity-oss/internal/ui/chat"
)

const (
	replayUsage = "pplx replay <file|-> [--delay MS] [--plain] [--no-save]"
	followUsage = "pplx follow <file> [--plain] [--no-save]"
)

// HandleReplay handles "pplx replay": a recorded stream is played back at
// a paced rate into the TUI, or printed when --plain or not on a terminal.
func HandleReplay(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "plain", "no-save")
	path := p.Positional(0)
	if path == "" {
		return ErrMissingArgument("file", replayUsage)
	}
	delay, err := p.FlagInt("delay", env.Config.Stream.ReplayDelayMS)
	if err != nil {
		return err
	}
	if delay < 0 {
		return &UsageError{Reason: "--delay must be >= 0", Usage: replayUsage}
	}
	pace := time.Duration(delay) * time.Millisecond

	var r io.Reader = env.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		r = f
	}

	src := func(ctx context.Context) (<-chan stream.Event, <-chan error) {
		return stream.Replay(ctx, r, pace)
	}
	// Stdin carries the recording, so it cannot drive the TUI.
	return runStream(env, p, src, "replay: "+filepath.Base(path), path == "-")
}

// HandleFollow handles "pplx follow": a recording is shown as it is
// written, until it reaches its end marker or the user quits.
func HandleFollow(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "plain", "no-save")
	path := p.Positional(0)
	if path == "" {
		return ErrMissingArgument("file", followUsage)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("follow recording: %w", err)
	}

	src := func(ctx context.Context) (<-chan stream.Event, <-chan error) {
		return stream.Tail(ctx, path, env.Logger)
	}
	return runStream(env, p, src, "follow: "+filepath.Base(path), false)
}

// runStream shows src in the TUI or prints the finished thread, then stores
// the thread unless --no-save is given.
func runStream(env *Env, p *ArgParser, src chat.Source, title string, forcePlain bool) error {
	st := env.NewStore()

	var err error
	if forcePlain || p.BoolFlag("plain") || !env.TTY {
		err = followPlain(env, st, src)
	} else {
		err = runTUI(env, st, src, title)
	}

	if !p.BoolFlag("no-save") {
		if serr := saveThread(env, st.Snapshot().Thread); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// followPlain consumes the whole stream, then prints the thread.
func followPlain(env *Env, st *store.Store, src chat.Source) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	events, errc := src(ctx)
	runErr := stream.NewFollower(st, env.Logger).Run(ctx, events)
	cancel()
	srcErr := <-errc

	r, err := env.TerminalRenderer()
	if err != nil {
		return err
	}
	printThread(env.Stdout, st.Snapshot().Thread, r, env.Logger)

	switch {
	case runErr != nil && !errors.Is(runErr, context.Canceled):
		return runErr
	case srcErr != nil && !errors.Is(srcErr, context.Canceled):
		return fmt.Errorf("read stream: %w", srcErr)
	}
	return nil
}

// runTUI runs the thread view until the user quits.
func runTUI(env *Env, st *store.Store, src chat.Source, title string) error {
	logger := env.Logger
	if env.Config.Log.File == "" {
		// The TUI owns the terminal; stderr logs would tear the screen.
		logger = zap.NewNop()
	}

	m, err := chat.New(chat.Options{
		Store:    st,
		Source:   src,
		Title:    title,
		Theme:    env.Config.UI.Theme,
		WordWrap: env.Config.UI.WordWrap,
		MaxFPS:   env.Config.Stream.MaxFPS,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	if fm, ok := final.(chat.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

// saveThread stores t unless it has no messages.
func saveThread(env *Env, t *model.Thread) error {
	if t == nil || t.IsEmpty() {
		return nil
	}
	ts, err := env.OpenThreads()
	if err != nil {
		return err
	}
	defer ts.Close()

	if err := ts.Save(context.Background(), t); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "%s thread %s\n", DimStyle.Render("Saved"), t.ID)
	return nil
}
