// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LyzrCore/perplexity-oss/internal/model"
	"github.com/LyzrCore/perplexity-oss/internal/store"
)

// =============================================================================
// STREAM ERRORS
// =============================================================================

// BackendError is a failure reported by the backend through an error event.
// Partial holds the answer text received before it.
type BackendError struct {
	Detail  string
	Partial string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("backend error (partial content received: %d chars): %s", len(e.Partial), e.Detail)
	}
	return "backend error: " + e.Detail
}

// =============================================================================
// FOLLOWER
// =============================================================================

// Follower applies one answer stream to a store.
type Follower struct {
	store  *store.Store
	logger *zap.Logger

	handle  *store.Handle
	content strings.Builder
	steps   []model.Step
	stepIdx map[int]int // backend step number -> index in steps
}

// NewFollower creates a follower writing into s. A nil logger disables logging.
func NewFollower(s *store.Store, logger *zap.Logger) *Follower {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Follower{store: s, logger: logger, stepIdx: make(map[int]int)}
}

// Run consumes events until stream-end, an error event, a closed channel,
// context cancellation or a stale handle.
//
// A stale handle means the thread was replaced or reset while streaming; Run
// then stops quietly and returns store.ErrStaleStream. A closed channel
// before stream-end finishes the message with the content received.
func (f *Follower) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return f.finish()
			}
			done, err := f.Apply(ev)
			if errors.Is(err, store.ErrStaleStream) {
				f.logger.Debug("stream abandoned", zap.String("event", string(ev.Type)))
				return err
			}
			if err != nil || done {
				return err
			}
		}
	}
}

// Apply applies a single event. done is true after stream-end.
func (f *Follower) Apply(ev Event) (done bool, err error) {
	f.logger.Debug("stream event", zap.String("event", string(ev.Type)), zap.Int("bytes", len(ev.Data)))

	switch ev.Type {
	case EventBeginStream:
		var p BeginStream
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		f.begin(p.Query)
		return false, nil

	case EventSearchResults:
		var p SearchResults
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		return false, f.apply(func(msg *model.Message) {
			msg.Sources = append([]model.Source(nil), p.Results...)
			msg.Images = append([]string(nil), p.Images...)
		})

	case EventTextChunk:
		var p TextChunk
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		f.content.WriteString(p.Text)
		return false, f.update()

	case EventFinalResponse:
		var p FinalResponse
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		if p.Message != "" {
			f.content.Reset()
			f.content.WriteString(p.Message)
		}
		return false, f.update()

	case EventRelatedQueries:
		var p RelatedQueries
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		return false, f.apply(func(msg *model.Message) {
			msg.RelatedQueries = append([]string(nil), p.RelatedQueries...)
		})

	case EventStreamEnd:
		var p StreamEnd
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		if err := f.finish(); err != nil {
			return true, err
		}
		if p.ThreadID != nil {
			f.store.SetThreadID(*p.ThreadID)
		}
		return true, nil

	case EventError:
		var p ErrorDetail
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		partial := f.content.String()
		if err := f.finish(); err != nil {
			return true, err
		}
		f.store.AppendMessage(model.NewSystemMessage("Error: " + p.Detail))
		return true, &BackendError{Detail: p.Detail, Partial: partial}

	case EventAgentQueryPlan:
		var p AgentQueryPlan
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		f.steps = f.steps[:0]
		f.stepIdx = make(map[int]int)
		for _, title := range p.Steps {
			f.steps = append(f.steps, model.Step{Title: title})
		}
		return false, f.applySteps()

	case EventAgentSearchQueries:
		var p AgentSearchQueries
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		step := f.step(p.StepNumber)
		step.Queries = append([]string(nil), p.Queries...)
		return false, f.applySteps()

	case EventAgentReadResults:
		var p AgentReadResults
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		step := f.step(p.StepNumber)
		step.Results = append([]model.Source(nil), p.Results...)
		step.Done = true
		return false, f.applySteps()

	case EventAgentFinish:
		for i := range f.steps {
			f.steps[i].Done = true
		}
		return false, f.applySteps()

	default:
		f.logger.Debug("ignoring unknown stream event", zap.String("event", string(ev.Type)))
		return false, nil
	}
}

// Content returns the full answer text received so far.
func (f *Follower) Content() string {
	return f.content.String()
}

// =============================================================================
// INTERNAL
// =============================================================================

// begin starts the answer message, preceded by the query when the thread
// does not already end with it.
func (f *Follower) begin(query string) {
	if f.handle != nil {
		return
	}
	if query != "" {
		last := f.store.Snapshot().Thread.GetLastMessage()
		if last == nil || last.Role != model.RoleUser || last.Content != query {
			f.store.AppendMessage(model.NewUserMessage(query))
		}
	}
	f.handle = f.store.BeginStream(model.NewAssistantMessage())
	f.logger.Debug("stream started", zap.String("message_id", f.handle.MessageID()))
}

func (f *Follower) apply(fn func(msg *model.Message)) error {
	f.begin("")
	return f.handle.Apply(fn)
}

// update passes the full content received so far, never the delta.
func (f *Follower) update() error {
	f.begin("")
	return f.handle.Update(f.content.String(), nil)
}

func (f *Follower) finish() error {
	if f.handle == nil {
		return nil
	}
	err := f.handle.Finish(f.content.String())
	if err == nil {
		f.logger.Debug("stream finished",
			zap.String("message_id", f.handle.MessageID()),
			zap.Int("chars", f.content.Len()))
	}
	return err
}

// step returns the plan step for a backend step number. Unseen numbers take
// the next unassigned plan step in order, or a new step past the plan.
func (f *Follower) step(number int) *model.Step {
	if i, ok := f.stepIdx[number]; ok {
		return &f.steps[i]
	}
	i := len(f.stepIdx)
	if i >= len(f.steps) {
		f.steps = append(f.steps, model.Step{})
		i = len(f.steps) - 1
	}
	f.stepIdx[number] = i
	f.steps[i].Number = number
	return &f.steps[i]
}

func (f *Follower) applySteps() error {
	steps := make([]model.Step, len(f.steps))
	for i, s := range f.steps {
		s.Queries = append([]string(nil), s.Queries...)
		s.Results = append([]model.Source(nil), s.Results...)
		steps[i] = s
	}
	return f.apply(func(msg *model.Message) {
		msg.Steps = steps
	})
}
