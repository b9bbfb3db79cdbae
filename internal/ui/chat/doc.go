// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the thread view of the pplx TUI.

The Model is a Bubble Tea model that displays one thread from a
store.Store: user queries, the assistant answer rendered through
render.TerminalRenderer on every store update, pro-search steps, related
queries and a status bar with the active modes.

# Data flow

A Source produces stream events (a replayed recording or a followed file).
A background command feeds them to a stream.Follower, which mutates the
store. Store updates reach the model through a coalescing feed: only the
newest snapshot is kept, so the store never waits on the UI. A frame tick
re-renders the viewport at most MaxFPS times per second.

# Keys

	q, ctrl+c   quit
	n           new thread (cancels the running stream)
	p           toggle pro mode
	l           toggle local mode
	up/down     scroll
	pgup/pgdown page
	g/G         top/bottom
	?           help

# Usage

	m, err := chat.New(chat.Options{Store: s, Source: src, Logger: logger})
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package chat
