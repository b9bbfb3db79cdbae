// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import "strings"

// =============================================================================
// CLEANUP
// =============================================================================

// linkTailPrefixes start an orphaned link destination.
var linkTailPrefixes = []string{"](http://", "](https://"}

// Cleanup removes fragments left by a stream cut off mid-construct:
//
//   - an opening bracket with no "]" before the next "[" or the end of the
//     text. Such a bracket can start neither a "[digits]" marker nor a
//     "[text](" link.
//   - a "](http://...)" or "](https://...)" tail whose "]" closes no
//     preceding "[". The tail runs to the first ")" inclusive, or stops at
//     whitespace, a bracket or the end of the text.
//
// Cleanup(Cleanup(x)) == Cleanup(x) for every x.
func Cleanup(text string) string {
	out := removeUnmatchedOpeners(text)
	// Removing a tail can butt another "]" against a following "(http",
	// so sweep until nothing changes. Each pass only shrinks the text.
	for {
		next := removeOrphanTails(out)
		if next == out {
			return out
		}
		out = next
	}
}

// removeUnmatchedOpeners drops every "[" that is not closed by a "]" before
// the next "[".
func removeUnmatchedOpeners(text string) string {
	if strings.IndexByte(text, '[') < 0 {
		return text
	}

	var drop []int
	open := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			if open >= 0 {
				drop = append(drop, open)
			}
			open = i
		case ']':
			open = -1
		}
	}
	if open >= 0 {
		drop = append(drop, open)
	}
	if len(drop) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, i := range drop {
		b.WriteString(text[last:i])
		last = i + 1
	}
	b.WriteString(text[last:])
	return b.String()
}

// removeOrphanTails drops link tails whose "]" has no open "[" before it.
func removeOrphanTails(text string) string {
	if !strings.Contains(text, "](http") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	open := false
	last := 0
	for i := 0; i < len(text); {
		switch text[i] {
		case '[':
			open = true
		case ']':
			if open {
				open = false
				break
			}
			if end, ok := orphanTailEnd(text, i); ok {
				b.WriteString(text[last:i])
				last = end
				i = end
				continue
			}
		}
		i++
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// orphanTailEnd reports where a link tail starting at text[i] == ']' ends.
func orphanTailEnd(text string, i int) (int, bool) {
	rest := text[i:]
	for _, prefix := range linkTailPrefixes {
		if !strings.HasPrefix(rest, prefix) {
			continue
		}
		j := i + len(prefix)
		for j < len(text) && !isTailStop(text[j]) {
			j++
		}
		if j < len(text) && text[j] == ')' {
			j++
		}
		return j, true
	}
	return 0, false
}

func isTailStop(c byte) bool {
	switch c {
	case ')', '[', ']', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
