// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation rewrites bracketed reference numbers in answer text into
// inline citation badges that link to the cited sources.
//
// The rewrite is a two-stage pure pipeline:
//
//  1. Substitute replaces every citation marker "[n]" with a badge.
//  2. Cleanup sweeps fragments a truncated stream leaves behind: unmatched
//     opening brackets and orphaned "](http...)" link tails.
//
// A citation marker is "[" + digits + "]" that is not immediately followed
// by "(" (that would be a markdown link) and not immediately preceded by a
// word character. "[n]" resolves to sources[n-1]; markers without a matching
// source still render, with an empty link target.
//
// Rewrite is cheap and stateless. Call it on the full content after every
// streamed chunk; never feed it deltas.
package citation

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/LyzrCore/perplexity-oss/internal/model"
)

// =============================================================================
// MARKER GRAMMAR
// =============================================================================

// markerRegex finds candidate markers. RE2 has no lookaround, so the
// "not followed by (" and "not preceded by a word char" rules are checked
// by isMarker on each candidate.
var markerRegex = regexp.MustCompile(`\[(\d+)\]`)

// BadgeFunc renders one citation. label is the citation number as it should
// be displayed; href is the source URL or "" when the number has no source.
type BadgeFunc func(label, href string) string

// hrefEscaper percent-encodes brackets so a badge can never feed Cleanup
// a bracket of its own.
var hrefEscaper = strings.NewReplacer("[", "%5B", "]", "%5D")

// =============================================================================
// REWRITE
// =============================================================================

// Rewrite converts raw answer text into HTML-annotated text: markers become
// HTMLBadge fragments, then incomplete-input fragments are removed.
func Rewrite(content string, sources []model.Source) string {
	return Cleanup(Substitute(content, sources, HTMLBadge))
}

// Substitute replaces every citation marker in content with badge(label, href).
// All other bytes of content are preserved verbatim.
func Substitute(content string, sources []model.Source, badge BadgeFunc) string {
	matches := markerRegex.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	b.Grow(len(content) + len(matches)*96)

	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !isMarker(content, start, end) {
			continue
		}
		label, href := resolve(content[m[2]:m[3]], sources)
		b.WriteString(content[last:start])
		b.WriteString(badge(label, href))
		last = end
	}
	b.WriteString(content[last:])
	return b.String()
}

// Cited returns the distinct citation numbers used in content, in order of
// first appearance. Markers that do not parse to a positive int are skipped.
func Cited(content string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range markerRegex.FindAllStringSubmatchIndex(content, -1) {
		if !isMarker(content, m[0], m[1]) {
			continue
		}
		n, err := strconv.Atoi(content[m[2]:m[3]])
		if err != nil || n < 1 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// isMarker applies the context rules to the candidate content[start:end].
func isMarker(content string, start, end int) bool {
	if end < len(content) && content[end] == '(' {
		return false
	}
	if start > 0 && isWordByte(content[start-1]) {
		return false
	}
	return true
}

// resolve maps the digit run onto a display label and link target.
// Digit runs too large for an int keep their literal text and get no target.
func resolve(digits string, sources []model.Source) (label, href string) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return digits, ""
	}
	if n >= 1 && n <= len(sources) {
		href = sources[n-1].URL
	}
	return strconv.Itoa(n), href
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// =============================================================================
// BADGES
// =============================================================================

// HTMLBadge renders a citation as a single-line inline HTML fragment: a link
// to href wrapping a small round badge with the number.
func HTMLBadge(label, href string) string {
	return `<a class="citation" href="` + html.EscapeString(hrefEscaper.Replace(href)) +
		`" target="_blank" rel="noopener noreferrer"><span class="citation-badge">` +
		html.EscapeString(label) + `</span></a>`
}

var superscripts = strings.NewReplacer(
	"0", "⁰", "1", "¹", "2", "²", "3", "³", "4", "⁴",
	"5", "⁵", "6", "⁶", "7", "⁷", "8", "⁸", "9", "⁹",
)

// FootnoteBadge renders a citation as superscript text for terminals, which
// cannot display inline HTML. The target is listed in a sources footer instead.
func FootnoteBadge(label, _ string) string {
	return "⁽" + superscripts.Replace(label) + "⁾"
}
