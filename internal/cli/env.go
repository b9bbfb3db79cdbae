// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/config"
	"github.com/LyzrCore/perplexity-oss/internal/logging"
	"github.com/LyzrCore/perplexity-oss/internal/render"
	"github.com/LyzrCore/perplexity-oss/internal/storage"
	"github.com/LyzrCore/perplexity-oss/internal/store"
)

// =============================================================================
// COMMAND ENVIRONMENT
// =============================================================================

// Env carries what command handlers share: streams, configuration and
// the logger.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Config     *config.Config
	ConfigPath string // file the config was read from, "" for defaults
	Logger     *zap.Logger

	// TTY reports whether stdout is an interactive terminal.
	TTY bool
}

// NewEnv loads the configuration, applies the global flags and builds the
// logger for a command run from a real terminal.
func NewEnv(args Args) (*Env, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if args.ConfigPath != "" {
		path = args.ConfigPath
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}
	if args.DB != "" {
		cfg.Storage.Path = args.DB
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	return &Env{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		TTY:        IsStdoutTTY(),
	}, nil
}

// Theme returns the configured theme, forced to plain when stdout is not a
// terminal or colors are disabled.
func (e *Env) Theme() string {
	if !e.TTY || !ColorsEnabled() {
		return "plain"
	}
	return e.Config.UI.Theme
}

// WrapWidth returns the answer wrap width for printed output.
func (e *Env) WrapWidth() int {
	if e.Config.UI.WordWrap > 0 {
		return e.Config.UI.WordWrap
	}
	if e.TTY {
		return GetTerminalWidth() - 2
	}
	return DefaultTerminalWidth
}

// Pipeline builds the HTML render pipeline from the render section.
func (e *Env) Pipeline() *render.Pipeline {
	r := render.NewHTMLRenderer(render.HTMLOptions{
		Sanitize:  e.Config.Render.Sanitize,
		Highlight: e.Config.Render.Highlight,
		CodeStyle: e.Config.Render.CodeStyle,
	})
	return render.NewPipeline(r, e.Logger)
}

// TerminalRenderer builds a renderer for printed output.
func (e *Env) TerminalRenderer() (*render.TerminalRenderer, error) {
	return render.NewTerminalRenderer(render.TerminalOptions{
		Theme:    e.Theme(),
		WordWrap: e.WrapWidth(),
	})
}

// NewStore creates the state container seeded from the ui section.
func (e *Env) NewStore() *store.Store {
	return store.New(store.Flags{
		ProMode:   e.Config.UI.ProMode,
		LocalMode: e.Config.UI.LocalMode,
		Theme:     e.Config.UI.Theme,
	}, e.Logger)
}

// OpenThreads opens the thread database.
func (e *Env) OpenThreads() (*storage.ThreadStore, error) {
	path, err := e.Config.StoragePath()
	if err != nil {
		return nil, err
	}
	ts, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open thread store: %w", err)
	}
	ts.MaxThreads = e.Config.Storage.MaxThreads
	return ts, nil
}
