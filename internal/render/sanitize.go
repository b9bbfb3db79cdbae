// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	classRegex  = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
	targetRegex = regexp.MustCompile(`^_blank$`)
)

// newPolicy returns the UGC policy extended with what citation badges and
// highlighted code need.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classRegex).OnElements("a", "span", "code", "pre", "div")
	p.AllowAttrs("target").Matching(targetRegex).OnElements("a")
	return p
}
