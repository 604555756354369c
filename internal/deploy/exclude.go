// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package deploy

import (
	"strings"
)

// ExcludeSet compiles a sync action's exclude patterns into the three-rule
// grammar (§9 design note): a general glob engine is deliberately not used,
// because its expressive surface would change observable semantics.
//
//   - a pattern ending in "/" excludes any directory of that name, at any
//     depth in the tree being synced.
//   - a pattern of the form "*.ext" excludes by suffix.
//   - any other pattern excludes by exact relative-path equality.
type ExcludeSet struct {
	dirNames map[string]bool
	suffixes []string
	exact    map[string]bool
}

// CompileExcludes parses a sync action's exclude list.
func CompileExcludes(rules []string) *ExcludeSet {
	set := &ExcludeSet{
		dirNames: make(map[string]bool),
		exact:    make(map[string]bool),
	}
	for _, rule := range rules {
		switch {
		case strings.HasSuffix(rule, "/"):
			set.dirNames[strings.TrimSuffix(rule, "/")] = true
		case strings.HasPrefix(rule, "*."):
			set.suffixes = append(set.suffixes, strings.TrimPrefix(rule, "*"))
		default:
			set.exact[rule] = true
		}
	}
	return set
}

// ExcludesPath reports whether a path relative to the sync source root is
// excluded, by any of the three rule forms. A directory-name rule matches
// any path component, so excluding a directory also excludes everything
// beneath it.
func (e *ExcludeSet) ExcludesPath(rel string) bool {
	if e == nil {
		return false
	}
	for _, part := range strings.Split(filepathToSlash(rel), "/") {
		if e.dirNames[part] {
			return true
		}
	}
	if e.exact[rel] {
		return true
	}
	for _, suffix := range e.suffixes {
		if strings.HasSuffix(rel, suffix) {
			return true
		}
	}
	return false
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
