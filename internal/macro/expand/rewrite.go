// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package expand

import (
	"sort"

	"pod/internal/macro/ast"
	"pod/internal/macro/graph"
)

// rewrite splices each top-level call's resolved result back into fc.src.
// Import statements are left untouched even when every binding they bring
// in is macro-only: the import is meaningless in the rewritten source (the
// module it points at usually isn't part of the runtime build at all), but
// removing it is a separate concern from splicing call results, and
// leaving it keeps the rewritten file a minimal diff of the original.
func rewrite(fc *fileCtx, g *graph.Graph) (string, error) {
	calls := append([]MacroCallSpan{}, topLevelSpans(fc)...)
	sort.Slice(calls, func(i, j int) bool { return calls[i].Start < calls[j].Start })

	type edit struct {
		start, end int
		text       string
	}
	var edits []edit
	for _, c := range calls {
		key := graph.CreateInlineKey(fc.path, c.Start)
		if c.Bound != "" {
			key = graph.CreateKey(fc.path, c.Bound)
		}
		v, ok := g.GetResult(key)
		if !ok {
			continue
		}
		edits = append(edits, edit{start: c.Start, end: c.End, text: ast.Print(ast.FromValue(v))})
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	out := fc.src
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		out = out[:e.start] + e.text + out[e.end:]
	}
	return out, nil
}

// MacroCallSpan is the subset of a discovered call relevant to rewriting:
// its byte span in the original source and, if bound, its binding name.
type MacroCallSpan struct {
	Start, End int
	Bound      string
}

// topLevelSpans returns every call span that is not nested inside another
// call's span — replacing a parent span already subsumes any macro call
// within its own argument list, so nested spans are dropped.
func topLevelSpans(fc *fileCtx) []MacroCallSpan {
	all := make([]MacroCallSpan, 0, len(fc.doc.Calls))
	for _, c := range fc.doc.Calls {
		all = append(all, MacroCallSpan{Start: c.Start, End: c.End, Bound: c.Bound})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	var top []MacroCallSpan
	for _, c := range all {
		contained := false
		for _, p := range top {
			if c.Start >= p.Start && c.End <= p.End {
				contained = true
				break
			}
		}
		if !contained {
			top = append(top, c)
		}
	}
	return top
}
