// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// REPLAY
// =============================================================================

// Replay decodes a recording from r and emits its events, at most one per
// pace. A zero pace emits as fast as the consumer reads.
//
// The events channel is closed when the recording ends, ctx is cancelled or
// decoding fails. The error channel then receives exactly one value: nil on
// a clean end.
func Replay(ctx context.Context, r io.Reader, pace time.Duration) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errc := make(chan error, 1)

	limit := rate.Inf
	if pace > 0 {
		limit = rate.Every(pace)
	}
	limiter := rate.NewLimiter(limit, 1)

	go func() {
		defer close(events)
		dec := NewDecoder(r)
		for {
			ev, err := dec.Next()
			if errors.Is(err, io.EOF) {
				errc <- nil
				return
			}
			if err != nil {
				errc <- err
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				errc <- err
				return
			}
			if !send(ctx, events, ev) {
				errc <- ctx.Err()
				return
			}
		}
	}()
	return events, errc
}

// ReadAll decodes every event in r.
func ReadAll(r io.Reader) ([]Event, error) {
	var out []Event
	dec := NewDecoder(r)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
