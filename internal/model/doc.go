// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for threads, messages and sources.
//
// # Key Types
//
//   - Thread: Container for a conversation with its messages and metadata
//   - Message: Single message with role, content and the sources it cites
//   - Source: A cited reference; its position in Message.Sources is its citation number
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
//	thread := model.NewThread()
//	thread.AddMessage(model.NewUserMessage("What is Go?"))
//	answer := model.NewAssistantMessage()
//	answer.Content = "Go is a language [1]."
//	answer.Sources = []model.Source{{URL: "https://go.dev"}}
//	thread.AddMessage(answer)
//
// Citation numbers are 1-indexed: "[1]" refers to Sources[0]. Use
// Message.SourceAt to resolve a number without bounds checks at the call site.
package model
