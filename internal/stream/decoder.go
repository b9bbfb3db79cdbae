// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// =============================================================================
// DECODER CONSTANTS
// =============================================================================

// MaxLineSize is the maximum allowed size of a single stream line (64KB).
const MaxLineSize = 64 * 1024

// ErrLineTooLong is returned when a line exceeds MaxLineSize.
var ErrLineTooLong = errors.New("stream line too long")

// errDone marks the "[DONE]" terminator.
var errDone = errors.New("done")

var (
	prefixData  = []byte("data:")
	prefixEvent = []byte("event:")
	doneMarker  = []byte("[DONE]")
)

// =============================================================================
// DECODER
// =============================================================================

// Decoder reads events from SSE or newline-delimited JSON input.
//
// SSE "data:" lines accumulate until a blank line dispatches them; a payload
// without an "event" field takes its type from the preceding "event:" line.
// A line starting with "{" is a complete event on its own. "[DONE]" ends the
// stream. Comments, "id:" and "retry:" fields are ignored, and payloads that
// are not valid JSON are skipped and counted.
type Decoder struct {
	r *bufio.Reader

	data      [][]byte
	eventName string
	done      bool
	skipped   int
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, MaxLineSize)}
}

// Skipped returns how many malformed payloads were dropped.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Next returns the next event. It returns io.EOF at the end of input or
// after "[DONE]".
func (d *Decoder) Next() (Event, error) {
	for !d.done {
		line, err := d.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			return Event{}, ErrLineTooLong
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}

		if len(line) > 0 {
			ev, ok, ferr := d.Feed(line)
			if errors.Is(ferr, errDone) {
				return Event{}, io.EOF
			}
			if ok {
				return ev, nil
			}
		}

		if errors.Is(err, io.EOF) {
			ev, ok, ferr := d.Flush()
			d.done = true
			if ok && ferr == nil {
				return ev, nil
			}
			return Event{}, io.EOF
		}
	}
	return Event{}, io.EOF
}

// Feed processes one line. ok is true when the line completed an event.
// Callers that read lines themselves, such as Tail, use Feed directly.
func (d *Decoder) Feed(line []byte) (ev Event, ok bool, err error) {
	line = bytes.TrimRight(line, "\r\n")

	switch {
	case len(line) == 0:
		return d.Flush()

	case line[0] == ':':
		return Event{}, false, nil

	case line[0] == '{':
		return d.dispatch(line)

	case bytes.Equal(line, doneMarker):
		d.done = true
		return Event{}, false, errDone

	case bytes.HasPrefix(line, prefixEvent):
		d.eventName = string(bytes.TrimSpace(line[len(prefixEvent):]))

	case bytes.HasPrefix(line, prefixData):
		data := line[len(prefixData):]
		data = bytes.TrimPrefix(data, []byte(" "))
		d.data = append(d.data, append([]byte(nil), data...))
	}
	// Ignore other fields (id:, retry:)
	return Event{}, false, nil
}

// Flush dispatches buffered SSE data lines, if any.
func (d *Decoder) Flush() (Event, bool, error) {
	if len(d.data) == 0 {
		d.eventName = ""
		return Event{}, false, nil
	}
	payload := bytes.Join(d.data, []byte("\n"))
	d.data = d.data[:0]
	return d.dispatch(payload)
}

func (d *Decoder) dispatch(payload []byte) (Event, bool, error) {
	name := d.eventName
	d.eventName = ""

	payload = bytes.TrimSpace(payload)
	if bytes.Equal(payload, doneMarker) {
		d.done = true
		return Event{}, false, errDone
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		// Skip malformed chunks
		d.skipped++
		return Event{}, false, nil
	}
	if ev.Type == "" {
		ev.Type = EventType(name)
	}
	if ev.Type == "" {
		d.skipped++
		return Event{}, false, nil
	}
	return ev, true, nil
}
