// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LyzrCore/perplexity-oss/internal/model"
)

func sources(urls ...string) []model.Source {
	out := make([]model.Source, len(urls))
	for i, u := range urls {
		out[i] = model.Source{URL: u, Title: "title " + u}
	}
	return out
}

// =============================================================================
// SUBSTITUTE TESTS
// =============================================================================

func TestRewrite_ResolvesAgainstSources(t *testing.T) {
	got := Rewrite("See [2] and [10].", sources("u1", "u2"))

	want := "See " + HTMLBadge("2", "u2") + " and " + HTMLBadge("10", "") + "."
	assert.Equal(t, want, got)
	assert.Contains(t, got, `href="u2"`)
	assert.Contains(t, got, `href=""`)
	assert.Contains(t, got, `>10</span>`)
}

func TestRewrite_LeavesMarkdownLinksAlone(t *testing.T) {
	got := Rewrite("Check [1](http://x.com) and [1].", sources("u1"))

	want := "Check [1](http://x.com) and " + HTMLBadge("1", "u1") + "."
	assert.Equal(t, want, got)
}

func TestSubstitute_MarkerContext(t *testing.T) {
	srcs := sources("u1", "u2")
	badge := func(label, href string) string { return "<" + label + "|" + href + ">" }

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a [1] b", "a <1|u1> b"},
		{"adjacent markers", "[1][2]", "<1|u1><2|u2>"},
		{"preceded by letter", "a[1]", "a[1]"},
		{"preceded by digit", "9[1]", "9[1]"},
		{"preceded by underscore", "x_[1]", "x_[1]"},
		{"preceded by punctuation", "end.[1]", "end.<1|u1>"},
		{"preceded by non-ascii letter", "日本[1]", "日本<1|u1>"},
		{"followed by paren", "[1](u)", "[1](u)"},
		{"followed by space paren", "[1] (u)", "<1|u1> (u)"},
		{"no source", "[3]", "<3|>"},
		{"zero", "[0]", "<0|>"},
		{"leading zeros", "[02]", "<2|u2>"},
		{"overflow", "[99999999999999999999999]", "<99999999999999999999999|>"},
		{"not digits", "[a1]", "[a1]"},
		{"inside brackets", "[[1]]", "[<1|u1>]"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Substitute(tc.in, srcs, badge))
		})
	}
}

func TestSubstitute_PreservesOtherText(t *testing.T) {
	in := "No markers here, only **markdown** and `code`."
	assert.Equal(t, in, Rewrite(in, sources("u1")))
}

func TestRewrite_Deterministic(t *testing.T) {
	in := "A [1], B [2], C [3]."
	srcs := sources("u1", "u2")
	assert.Equal(t, Rewrite(in, srcs), Rewrite(in, srcs))
}

func TestRewrite_StreamingPrefixes(t *testing.T) {
	srcs := sources("http://a")

	assert.Equal(t, "Hello 1", Rewrite("Hello [1", srcs))
	assert.Equal(t, "Hello "+HTMLBadge("1", "http://a"), Rewrite("Hello [1]", srcs))
	assert.Equal(t, "Hello "+HTMLBadge("1", "http://a")+" world", Rewrite("Hello [1] world", srcs))
}

func TestRewrite_CleanupKeepsBadges(t *testing.T) {
	srcs := sources("u1", "u2")
	got := Rewrite("[1] and [2", srcs)
	assert.Equal(t, HTMLBadge("1", "u1")+" and 2", got)
}

func TestCited(t *testing.T) {
	got := Cited("a [2] b [1] c [2] d[3] [0] [4](x) [5")
	assert.Equal(t, []int{2, 1}, got)
	assert.Empty(t, Cited("nothing cited"))
}

// =============================================================================
// BADGE TESTS
// =============================================================================

func TestHTMLBadge(t *testing.T) {
	got := HTMLBadge("3", "https://example.com/a")
	assert.Equal(t,
		`<a class="citation" href="https://example.com/a" target="_blank" rel="noopener noreferrer"><span class="citation-badge">3</span></a>`,
		got)
	assert.NotContains(t, got, "\n")
}

func TestHTMLBadge_EscapesHref(t *testing.T) {
	got := HTMLBadge("1", `http://x/[a]?q="1"&b=2`)
	assert.Contains(t, got, `href="http://x/%5Ba%5D?q=&#34;1&#34;&amp;b=2"`)
	assert.NotContains(t, got, "[")
	assert.NotContains(t, got, "]")
}

func TestFootnoteBadge(t *testing.T) {
	assert.Equal(t, "⁽¹²⁾", FootnoteBadge("12", "ignored"))
	assert.Equal(t, "⁽⁰⁾", FootnoteBadge("0", ""))
}

// =============================================================================
// CLEANUP TESTS
// =============================================================================

func TestCleanup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing opener", "Hello [1", "Hello 1"},
		{"lone opener", "[", ""},
		{"opener before opener", "see [a [b] c", "see a [b] c"},
		{"complete link", "[ok](https://x.com)", "[ok](https://x.com)"},
		{"orphan tail", "text](https://x.com/a) more", "text more"},
		{"orphan tail at end", "text](https://x.com/a", "text"},
		{"orphan tail stops at space", "x](http://y z", "x z"},
		{"consecutive orphan tails", "a](http://x)](http://y)", "a"},
		{"non-http tail kept", "a](ftp://x)", "a](ftp://x)"},
		{"stray closer kept", "a ] b", "a ] b"},
		{"tail after closed bracket", "[a]](http://x)", "[a]"},
		{"no brackets", "plain text", "plain text"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Cleanup(tc.in))
		})
	}
}

var cleanupCorpus = []string{
	"",
	"[",
	"]",
	"[[[",
	"]]](http://x)",
	"a](http://x)](http://y)",
	"]](http://x)(http://y)",
	"[a]](https://x)](https://y) [b",
	"[1](http://x.com) and [1] and [2",
	"text [link](https://ex",
	"](https://a[b](https://c)",
	"[x](http://y)] (http://z)",
	"nested [[1]] [[",
}

func TestCleanup_Idempotent(t *testing.T) {
	for _, in := range cleanupCorpus {
		once := Cleanup(in)
		require.Equal(t, once, Cleanup(once), "input %q", in)
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	srcs := sources("u1", "u2")
	for _, in := range cleanupCorpus {
		once := Rewrite(in, srcs)
		require.Equal(t, once, Cleanup(once), "input %q", in)
	}
}

// =============================================================================
// FUZZ TESTS
// =============================================================================

// FuzzCleanup checks idempotency and that cleanup never grows its input.
func FuzzCleanup(f *testing.F) {
	for _, seed := range cleanupCorpus {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		once := Cleanup(in)
		if twice := Cleanup(once); twice != once {
			t.Fatalf("Cleanup not idempotent for %q: %q then %q", in, once, twice)
		}
		if len(once) > len(in) {
			t.Fatalf("Cleanup grew %q to %q", in, once)
		}
	})
}

// FuzzRewrite checks that every marker becomes exactly one badge.
func FuzzRewrite(f *testing.F) {
	f.Add("See [2] and [10].")
	f.Add("[1](x) [1]")
	f.Add("a[1] [2] [[3]")

	srcs := sources("u1", "u2", "u3")
	f.Fuzz(func(t *testing.T, in string) {
		markers := 0
		for _, m := range markerRegex.FindAllStringIndex(in, -1) {
			if isMarker(in, m[0], m[1]) {
				markers++
			}
		}
		got := Substitute(in, srcs, HTMLBadge)
		if n := strings.Count(got, `class="citation-badge"`) - strings.Count(in, `class="citation-badge"`); n != markers {
			t.Fatalf("got %d badges for %d markers in %q", n, markers, in)
		}
	})
}
