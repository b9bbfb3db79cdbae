// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// TAIL
// =============================================================================

// Tail follows a recording file as it grows. Events already in the file are
// emitted first, then new ones as they are appended. A trailing line without
// its newline is held until the rest of it is written.
//
// Tail stops when ctx is cancelled, the stream reaches "[DONE]" or the file is
// removed or renamed. The events channel is then closed and the error channel
// receives exactly one value: nil unless reading or watching failed.
func Tail(ctx context.Context, path string, logger *zap.Logger) (<-chan Event, <-chan error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	events := make(chan Event)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		errc <- tail(ctx, path, events, logger)
	}()
	return events, errc
}

func tail(ctx context.Context, path string, events chan<- Event, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch recording: %w", err)
	}

	br := bufio.NewReaderSize(f, MaxLineSize)
	dec := &Decoder{}
	var partial []byte

	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) || len(partial)+len(chunk) > MaxLineSize {
			return ErrLineTooLong
		}
		partial = append(partial, chunk...)

		switch {
		case err == nil:
			ev, ok, ferr := dec.Feed(partial)
			partial = partial[:0]
			if errors.Is(ferr, errDone) {
				return nil
			}
			if ok && !send(ctx, events, ev) {
				return nil
			}
			continue

		case !errors.Is(err, io.EOF):
			return fmt.Errorf("read recording: %w", err)
		}

		// At the end of what has been written so far: wait for more.
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
				logger.Debug("recording went away", zap.String("path", path), zap.String("op", e.Op.String()))
				if ev, ok, _ := dec.Flush(); ok {
					send(ctx, events, ev)
				}
				return nil
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch recording: %w", werr)
		}
	}
}
