// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/citation"
	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// =============================================================================
// RENDER PIPELINE
// =============================================================================

// State is the derived, per-update view of a message. It is never persisted.
type State struct {
	RewrittenText string
	IsStreaming   bool
}

// StateOf rewrites the citations of msg.
func StateOf(msg *model.Message) State {
	return State{
		RewrittenText: citation.Rewrite(msg.Content, msg.Sources),
		IsStreaming:   msg.IsStreaming,
	}
}

// Pipeline runs citation rewriting then HTML rendering for a message.
type Pipeline struct {
	html   *HTMLRenderer
	logger *zap.Logger
}

// NewPipeline creates a pipeline. A nil logger disables logging.
func NewPipeline(r *HTMLRenderer, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{html: r, logger: logger}
}

// Message renders msg from its full current content. Call it on every
// update; nothing is cached between calls.
func (p *Pipeline) Message(msg *model.Message) (State, string, error) {
	state := StateOf(msg)
	out, err := p.html.Render(state.RewrittenText, state.IsStreaming)
	if err != nil {
		p.logger.Warn("render failed, showing plain text",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
	return state, out, err
}

// Renderer returns the underlying HTML renderer.
func (p *Pipeline) Renderer() *HTMLRenderer {
	return p.html
}
