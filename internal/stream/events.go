// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes answer event streams from the search backend and
// applies them to the conversation store.
//
// The backend sends one JSON object per event, {"event": <type>, "data": {...}},
// either as Server-Sent Events or, in recordings, as newline-delimited JSON.
// Decoder reads both. Replay and Tail turn a recording into an event channel
// and Follower applies the events to a store.Handle, always passing the full
// content received so far.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType names a backend stream event.
type EventType string

const (
	EventBeginStream    EventType = "begin-stream"
	EventSearchResults  EventType = "search-results"
	EventTextChunk      EventType = "text-chunk"
	EventRelatedQueries EventType = "related-queries"
	EventFinalResponse  EventType = "final-response"
	EventStreamEnd      EventType = "stream-end"
	EventError          EventType = "error"

	// Pro search
	EventAgentQueryPlan     EventType = "agent-query-plan"
	EventAgentSearchQueries EventType = "agent-search-queries"
	EventAgentReadResults   EventType = "agent-read-results"
	EventAgentFinish        EventType = "agent-finish"
)

// Event is one decoded stream event. Data holds the type-specific payload.
type Event struct {
	Type EventType       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event with payload marshaled into Data.
func NewEvent(t EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{Type: t, Data: data}, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// =============================================================================
// PAYLOADS
// =============================================================================

// BeginStream starts an answer.
type BeginStream struct {
	Query string `json:"query"`
}

// SearchResults carries the sources an answer cites, in citation order.
type SearchResults struct {
	Results []model.Source `json:"results"`
	Images  []string       `json:"images,omitempty"`
}

// TextChunk is the next piece of answer text.
type TextChunk struct {
	Text string `json:"text"`
}

// RelatedQueries are follow-up suggestions.
type RelatedQueries struct {
	RelatedQueries []string `json:"related_queries"`
}

// FinalResponse is the complete answer text.
type FinalResponse struct {
	Message string `json:"message"`
}

// StreamEnd closes the stream. ThreadID is nil when the backend did not
// persist the thread.
type StreamEnd struct {
	ThreadID *int64 `json:"thread_id"`
}

// ErrorDetail reports a backend failure.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// AgentQueryPlan lists the step titles of a pro-search plan.
type AgentQueryPlan struct {
	Steps []string `json:"steps"`
}

// AgentSearchQueries reports the queries issued for a plan step.
type AgentSearchQueries struct {
	StepNumber int      `json:"step_number"`
	Queries    []string `json:"queries"`
}

// AgentReadResults reports the results read for a plan step.
type AgentReadResults struct {
	StepNumber int            `json:"step_number"`
	Results    []model.Source `json:"results"`
}
