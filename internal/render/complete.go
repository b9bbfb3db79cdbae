// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// INCOMPLETE MARKDOWN COMPLETION
// =============================================================================

// orderedListRegex matches an ordered list marker at the start of a line.
var orderedListRegex = regexp.MustCompile(`^\d{1,9}[.)]( |\t|$)`)

// Complete closes the markdown constructs a cut-off stream leaves open so the
// prefix renders without stray syntax characters:
//
//   - an open fenced code block gets its closing fence
//   - an open code span gets its closing backticks
//   - open emphasis, strong and strikethrough delimiters are closed in reverse
//     order; a delimiter with nothing after it is dropped
//   - an unterminated link destination gets its ")"
//   - an open raw inline tag gets its end tag
//   - an unmatched "[" and a partial HTML tag at the end are dropped
//
// Only the last block is inspected; inline constructs cannot span blocks.
// Complete is pure and deterministic.
func Complete(text string) string {
	if text == "" {
		return text
	}

	var fence *codeFence
	blockStart := 0
	newBlock := true
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		content := strings.TrimRight(line, "\r\n")
		offset += len(line)

		if fence != nil {
			if fence.closedBy(content) {
				fence = nil
				blockStart, newBlock = offset, true
			}
			continue
		}
		if f := openFence(content); f != nil {
			fence = f
			continue
		}
		if strings.TrimSpace(content) == "" {
			newBlock = true
			continue
		}
		if isThematicBreak(content) {
			blockStart, newBlock = offset, true
			continue
		}
		if newBlock || isBlockStart(content) {
			blockStart = offset - len(line)
		}
		newBlock = isHeading(content)
	}

	if fence != nil {
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text + fence.marker()
	}
	if blockStart >= len(text) {
		return text
	}
	return text[:blockStart] + completeInline(text[blockStart:])
}

// =============================================================================
// FENCES
// =============================================================================

type codeFence struct {
	char  byte
	count int
}

// openFence returns the fence opened by line, or nil.
func openFence(line string) *codeFence {
	s, ok := stripIndent(line)
	if !ok || len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return nil
	}
	n := runLength(s, 0, s[0])
	if n < 3 {
		return nil
	}
	// A backtick fence's info string cannot itself contain backticks.
	if s[0] == '`' && strings.IndexByte(s[n:], '`') >= 0 {
		return nil
	}
	return &codeFence{char: s[0], count: n}
}

func (f *codeFence) closedBy(line string) bool {
	s, ok := stripIndent(line)
	if !ok || len(s) == 0 || s[0] != f.char {
		return false
	}
	n := runLength(s, 0, f.char)
	return n >= f.count && strings.TrimSpace(s[n:]) == ""
}

func (f *codeFence) marker() string {
	return strings.Repeat(string(f.char), f.count)
}

// stripIndent removes up to three leading spaces. Four or more is an indented
// code block, reported as !ok.
func stripIndent(line string) (string, bool) {
	i := 0
	for i < len(line) && i < 4 && line[i] == ' ' {
		i++
	}
	if i == 4 {
		return line, false
	}
	return line[i:], true
}

// =============================================================================
// BLOCK STARTS
// =============================================================================

// blockMarkerLen returns the length of the container markers (block quotes,
// list items, heading hashes) at the start of line.
func blockMarkerLen(line string) int {
	pos := 0
	for {
		s, ok := stripIndent(line[pos:])
		if !ok {
			return pos
		}
		base := len(line) - len(s)
		switch {
		case strings.HasPrefix(s, ">"):
			pos = base + 1
			if pos < len(line) && line[pos] == ' ' {
				pos++
			}
		case len(s) >= 2 && (s[0] == '-' || s[0] == '*' || s[0] == '+') && (s[1] == ' ' || s[1] == '\t'):
			pos = base + 2
		case orderedListRegex.MatchString(s):
			m := orderedListRegex.FindString(s)
			pos = base + len(m)
		case isHeading(s):
			n := runLength(s, 0, '#')
			pos = base + n
			if pos < len(line) {
				pos++
			}
			return pos
		default:
			return pos
		}
		if pos >= len(line) {
			return len(line)
		}
	}
}

func isBlockStart(line string) bool {
	return blockMarkerLen(line) > 0
}

// isThematicBreak reports whether line is "***", "---", "___" or a spaced
// variant of them.
func isThematicBreak(line string) bool {
	s, ok := stripIndent(line)
	if !ok || len(s) == 0 || (s[0] != '*' && s[0] != '-' && s[0] != '_') {
		return false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case s[0]:
			n++
		case ' ', '\t':
		default:
			return false
		}
	}
	return n >= 3
}

func isHeading(line string) bool {
	s, ok := stripIndent(line)
	if !ok {
		return false
	}
	n := runLength(s, 0, '#')
	return n >= 1 && n <= 6 && (n == len(s) || s[n] == ' ' || s[n] == '\t')
}

// =============================================================================
// INLINE COMPLETION
// =============================================================================

type delimiter struct {
	token string
	pos   int
}

// inlineScan is the state left after scanning the last block.
type inlineScan struct {
	stack    []delimiter
	tags     []delimiter // open raw inline tags; token is the end tag
	codeLen  int // backtick run of the open code span, 0 if none
	codePos  int
	linkDest bool
	bracket  int // last unmatched "[", -1 if none
	tagCut   int // start of a partial HTML tag, -1 if none
}

// completeInline closes the open inline constructs of a single block.
func completeInline(block string) string {
	st := scanInline(block, blockMarkerLen(firstLine(block)))

	out := block
	if st.tagCut >= 0 {
		out = out[:st.tagCut]
	}
	trimmed := strings.TrimRight(out, " \t\r\n")
	changed := len(out) != len(block)

	if st.codeLen > 0 && st.codePos+st.codeLen >= len(trimmed) {
		trimmed = strings.TrimRight(trimmed[:st.codePos], " \t\r\n")
		st.codeLen = 0
		changed = true
	}
	if st.codeLen == 0 && !st.linkDest {
		for len(st.stack) > 0 {
			top := st.stack[len(st.stack)-1]
			if top.pos+len(top.token) < len(trimmed) {
				break
			}
			trimmed = strings.TrimRight(trimmed[:top.pos], " \t\r\n")
			st.stack = st.stack[:len(st.stack)-1]
			changed = true
		}
	}

	var closers strings.Builder
	if st.codeLen > 0 {
		closers.WriteString(strings.Repeat("`", st.codeLen))
	}
	if st.linkDest {
		closers.WriteByte(')')
	}
	open := make([]delimiter, 0, len(st.stack)+len(st.tags))
	open = append(open, st.stack...)
	open = append(open, st.tags...)
	sort.SliceStable(open, func(a, b int) bool { return open[a].pos > open[b].pos })
	for _, d := range open {
		closers.WriteString(d.token)
	}

	if closers.Len() > 0 {
		// A trailing lone backslash would escape the first closer.
		if st.codeLen == 0 && trailingBackslashes(trimmed)%2 == 1 {
			trimmed = trimmed[:len(trimmed)-1]
		}
		changed = true
	}
	if st.bracket >= 0 && st.bracket < len(trimmed) {
		cut := st.bracket
		if cut > 0 && trimmed[cut-1] == '!' {
			cut--
		}
		trimmed = trimmed[:cut] + trimmed[st.bracket+1:]
		changed = true
	}

	if !changed {
		return block
	}
	return trimmed + closers.String()
}

// scanInline walks block from start and records what is still open.
func scanInline(s string, start int) inlineScan {
	st := inlineScan{bracket: -1, tagCut: -1}

	for i := start; i < len(s); {
		c := s[i]

		if st.codeLen > 0 {
			if c == '`' {
				n := runLength(s, i, '`')
				if n == st.codeLen {
					st.codeLen = 0
				}
				i += n
				continue
			}
			i++
			continue
		}

		if st.linkDest {
			if c == ')' {
				st.linkDest = false
			}
			i++
			continue
		}

		switch c {
		case '\\':
			i += 2
			continue

		case '`':
			n := runLength(s, i, '`')
			st.codeLen, st.codePos = n, i
			i += n
			continue

		case '<':
			if i+1 < len(s) && isTagStart(s[i+1]) {
				end := strings.IndexByte(s[i:], '>')
				if end < 0 {
					if (i == 0 || !isWordChar(s[i-1])) && isPartialTag(s[i:]) {
						st.tagCut = i
						return st
					}
					break
				}
				// Raw HTML, including citation badges, is opaque.
				st.rawTag(s[i:i+end+1], i)
				i += end + 1
				continue
			}

		case '[':
			st.bracket = i

		case ']':
			st.bracket = -1
			if i+1 < len(s) && s[i+1] == '(' {
				st.linkDest = true
				i += 2
				continue
			}

		case '*', '_', '~':
			n := runLength(s, i, c)
			st.delimiterRun(s, i, n)
			i += n
			continue
		}
		i++
	}
	return st
}

// delimiterRun pushes or pops the emphasis stack for the run s[i:i+n].
func (st *inlineScan) delimiterRun(s string, i, n int) {
	c := s[i]
	if n > 3 || (c == '~' && n != 2) {
		return
	}

	prev, next := byte(' '), byte(0)
	if i > 0 {
		prev = s[i-1]
	}
	if i+n < len(s) {
		next = s[i+n]
	}

	canOpen := next == 0 || !isSpace(next) || strings.TrimSpace(s[i+n:]) == ""
	canClose := !isSpace(prev)
	if c == '_' && isWordChar(prev) && isWordChar(next) {
		return
	}

	// An intraword "*" stays literal unless something closes it later.
	if c == '*' && isWordChar(prev) {
		canOpen = false
	}

	token := s[i : i+n]
	if canClose && len(st.stack) > 0 {
		// Openers above the match are left unclosed, as CommonMark does.
		for k := len(st.stack) - 1; k >= 0; k-- {
			if st.stack[k].token == token {
				st.stack = st.stack[:k]
				return
			}
		}
		top := st.stack[len(st.stack)-1]
		if n == 3 && len(st.stack) >= 2 {
			below := st.stack[len(st.stack)-2]
			if top.token[0] == c && below.token[0] == c && len(top.token)+len(below.token) == 3 {
				st.stack = st.stack[:len(st.stack)-2]
				return
			}
		}
	}
	if canOpen {
		st.stack = append(st.stack, delimiter{token: token, pos: i})
	}
}

// voidElements never take an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// rawTag records a complete raw HTML tag starting at pos: start tags are
// pushed, end tags pop their nearest matching start tag.
func (st *inlineScan) rawTag(tag string, pos int) {
	if len(tag) < 3 || tag[1] == '!' || strings.HasSuffix(tag, "/>") {
		return
	}
	closing := tag[1] == '/'
	name := tag[1:]
	if closing {
		name = name[1:]
	}
	n := 0
	for n < len(name) && isTagNameChar(name[n]) {
		n++
	}
	name = strings.ToLower(name[:n])
	if name == "" || voidElements[name] {
		return
	}

	end := "</" + name + ">"
	if closing {
		for k := len(st.tags) - 1; k >= 0; k-- {
			if st.tags[k].token == end {
				st.tags = st.tags[:k]
				return
			}
		}
		return
	}
	st.tags = append(st.tags, delimiter{token: end, pos: pos})
}

// isPartialTag reports whether tail, which starts with "<", reads as an HTML
// tag cut off before its ">": a tag name followed only by attribute syntax,
// all on one line.
func isPartialTag(tail string) bool {
	if strings.IndexByte(tail, '\n') >= 0 {
		return false
	}
	i := 1
	if i < len(tail) && tail[i] == '!' {
		return true
	}
	if i < len(tail) && tail[i] == '/' {
		i++
	}
	if i == len(tail) {
		return true
	}
	if !isASCIILetter(tail[i]) {
		return false
	}
	for i < len(tail) && isTagNameChar(tail[i]) {
		i++
	}

	for i < len(tail) {
		c := tail[i]
		if !isSpace(c) && c != '/' {
			return false
		}
		for i < len(tail) && (isSpace(tail[i]) || tail[i] == '/') {
			i++
		}
		if i == len(tail) {
			return true
		}

		if !isAttrNameStart(tail[i]) {
			return false
		}
		for i < len(tail) && isAttrNameChar(tail[i]) {
			i++
		}
		j := i
		for j < len(tail) && isSpace(tail[j]) {
			j++
		}
		if j == len(tail) || tail[j] != '=' {
			continue
		}
		i = j + 1
		for i < len(tail) && isSpace(tail[i]) {
			i++
		}
		if i == len(tail) {
			return true
		}
		if q := tail[i]; q == '"' || q == '\'' {
			k := strings.IndexByte(tail[i+1:], q)
			if k < 0 {
				return true
			}
			i += k + 2
			continue
		}
		for i < len(tail) && !isSpace(tail[i]) && strings.IndexByte("\"'=<>`", tail[i]) < 0 {
			i++
		}
	}
	return true
}

// =============================================================================
// HELPERS
// =============================================================================

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

func trailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}

func isTagStart(c byte) bool {
	return c == '/' || c == '!' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isTagNameChar(c byte) bool {
	return isASCIILetter(c) || (c >= '0' && c <= '9') || c == '-'
}

func isAttrNameStart(c byte) bool {
	return isASCIILetter(c) || c == '_' || c == ':'
}

func isAttrNameChar(c byte) bool {
	return isAttrNameStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isWordChar treats any non-ASCII byte as part of a word.
func isWordChar(c byte) bool {
	return c >= 0x80 ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
