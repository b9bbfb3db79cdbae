// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/render"
	"github.com/LyzrCore/perplexity-oss/internal/store"
	"github.com/LyzrCore/perplexity-oss/internal/stream"
	"github.com/LyzrCore/perplexity-oss/internal/ui/styles"
)

// DefaultMaxFPS caps viewport re-renders per second.
const DefaultMaxFPS = 30

// fallbackWidth is the wrap width used before the first window size.
const fallbackWidth = 80

// =============================================================================
// MODEL
// =============================================================================

// Source opens the event stream shown by the model.
type Source func(ctx context.Context) (<-chan stream.Event, <-chan error)

// Options configures a Model.
type Options struct {
	Store  *store.Store
	Source Source // nil shows the store without streaming
	Title  string

	Theme    string // "auto", "dark", "light" or "plain"
	WordWrap int    // 0 follows the window width
	MaxFPS   int

	Logger *zap.Logger
}

// Model is the Bubble Tea model of the thread view.
type Model struct {
	store  *store.Store
	source Source
	title  string
	logger *zap.Logger

	themeName string
	theme     *styles.Theme
	wrap      int
	renderer  *render.TerminalRenderer
	cache     *renderCache

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	spinner  spinner.Model

	feed      *snapshotFeed
	cancelMgr *cancelManager
	frame     time.Duration

	snap   store.Snapshot
	dirty  bool
	ready  bool
	width  int
	height int

	status   string
	err      error
	quitting bool
}

// New creates a model bound to opts.Store.
func New(opts Options) (Model, error) {
	if opts.Store == nil {
		return Model{}, errors.New("chat: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fps := opts.MaxFPS
	if fps <= 0 {
		fps = DefaultMaxFPS
	}

	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = fallbackWidth
	}
	renderer, err := render.NewTerminalRenderer(render.TerminalOptions{Theme: opts.Theme, WordWrap: wrap})
	if err != nil {
		return Model{}, err
	}

	theme := styles.NewTheme(opts.Theme)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		store:     opts.Store,
		source:    opts.Source,
		title:     opts.Title,
		logger:    logger.Named("tui"),
		themeName: opts.Theme,
		theme:     theme,
		wrap:      opts.WordWrap,
		renderer:  renderer,
		cache:     newRenderCache(),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		feed:      newSnapshotFeed(opts.Store),
		cancelMgr: newCancelManager(),
		frame:     time.Second / time.Duration(fps),
		snap:      opts.Store.Snapshot(),
		dirty:     true,
	}
	return m, nil
}

// Init starts the spinner, the frame ticker, the store feed and the stream.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tick(),
		m.feed.wait(),
		m.startStream(),
	)
}

// Snapshot returns the state last shown by the model.
func (m Model) Snapshot() store.Snapshot {
	return m.snap
}

// Err returns the error that ended the stream, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

// startStream runs the source through a follower until it ends, the
// thread is reset or the model quits.
func (m Model) startStream() tea.Cmd {
	if m.source == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.setCancelFunc(cancel)

	source, st, logger := m.source, m.store, m.logger
	return func() tea.Msg {
		defer cancel()
		events, errc := source(ctx)
		err := stream.NewFollower(st, logger).Run(ctx, events)
		cancel()
		srcErr := <-errc

		switch {
		case errors.Is(err, store.ErrStaleStream), errors.Is(err, context.Canceled):
			logger.Debug("stream stopped", zap.Error(err))
			return streamDoneMsg{}
		case err != nil:
			return streamDoneMsg{err: err}
		case srcErr != nil && !errors.Is(srcErr, context.Canceled):
			return streamDoneMsg{err: srcErr}
		}
		return streamDoneMsg{}
	}
}

// rebuildRenderer recreates the terminal renderer for a new wrap width.
func (m *Model) rebuildRenderer(width int) {
	if width < 20 {
		width = 20
	}
	if m.renderer.Width() == width {
		return
	}
	r, err := render.NewTerminalRenderer(render.TerminalOptions{Theme: m.themeName, WordWrap: width})
	if err != nil {
		m.logger.Warn("keeping previous renderer", zap.Int("width", width), zap.Error(err))
		return
	}
	m.renderer = r
	m.cache.reset()
}
