// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package graph is the macro dependency graph: one node per call site
// (bound or inline), edges for "site A's arguments reference site B's
// result", and a topological sort that resolves every site exactly once,
// leaves first.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"pod/internal/macro/ast"
)

// Key identifies a call site: the file it's declared in plus either its
// binding name (a bound site, `const NAME = foo$(...)`) or an integer (an
// inline site, `foo$(...)` used directly as an expression: its byte offset,
// or a negative synthetic ordinal for a call nested inside an argument).
type Key string

// CreateKey builds the Key for a bound site. Inline sites use
// CreateInlineKey instead, since they have no declaring binding to key on.
func CreateKey(file, bindingName string) Key {
	return Key(file + "#" + bindingName)
}

// CreateInlineKey builds the Key for an inline site from an integer unique
// within the file: the expander passes a top-level call's byte offset, or a
// negative synthetic ordinal for a call nested inside an argument, so the
// two never collide.
func CreateInlineKey(file string, byteOffset int) Key {
	return Key(fmt.Sprintf("%s#@%d", file, byteOffset))
}

// Site is one macro call site discovered during expansion.
type Site struct {
	Key    Key
	File   string
	Callee string // the imported macro's exported name
	Args   []*ast.Node
}

// Graph tracks every call site discovered across a run, the dependency
// edges between them (site A depends on site B when one of A's argument
// expressions references B's binding), and each site's resolved result
// once its macro has run. It is safe for concurrent use: every method holds
// the graph's mutex.
type Graph struct {
	mu      sync.Mutex
	sites   map[Key]*Site
	order   []Key // insertion order, for deterministic iteration and error messages
	deps    map[Key]map[Key]bool
	results map[Key]ast.Value
	resolved map[Key]bool
}

func New() *Graph {
	return &Graph{
		sites:    make(map[Key]*Site),
		deps:     make(map[Key]map[Key]bool),
		results:  make(map[Key]ast.Value),
		resolved: make(map[Key]bool),
	}
}

// AddSite registers a call site. Calling it twice for the same Key is a
// no-op if the site is identical in shape; it is never an error, since
// discovery may legitimately revisit the same site while resolving a
// transitive dependency more than once before all its dependencies are
// resolved.
func (g *Graph) AddSite(site *Site) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sites[site.Key]; !ok {
		g.order = append(g.order, site.Key)
	}
	g.sites[site.Key] = site
}

// AddDependency records that the site at `from` references the result of
// the site at `to` (from must be resolved after to).
func (g *Graph) AddDependency(from, to Key) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deps[from] == nil {
		g.deps[from] = make(map[Key]bool)
	}
	g.deps[from][to] = true
}

// SetResult stores a site's resolved value and marks it resolved.
func (g *Graph) SetResult(key Key, v ast.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[key] = v
	g.resolved[key] = true
}

// GetResult returns a site's resolved value, if any.
func (g *Graph) GetResult(key Key) (ast.Value, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.results[key]
	return v, ok
}

// IsResolved reports whether a site's macro has already run.
func (g *Graph) IsResolved(key Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolved[key]
}

// Site looks up a registered site by Key.
func (g *Graph) Site(key Key) (*Site, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sites[key]
	return s, ok
}

// SitesIn returns every site registered for the given file, in discovery
// order.
func (g *Graph) SitesIn(file string) []*Site {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Site
	for _, k := range g.order {
		if s := g.sites[k]; s.File == file {
			out = append(out, s)
		}
	}
	return out
}

// mark is the three-color DFS state used by TopologicalSort.
type mark int

const (
	unmarked mark = iota
	inProgress
	done
)

// TopologicalSort orders every registered site so that each site follows
// every site it depends on, using a three-mark depth-first search. A cycle
// among macro results is a fatal, file-independent error: it returns a
// *CycleDetectedError naming the cycle.
func (g *Graph) TopologicalSort() ([]Key, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	marks := make(map[Key]mark, len(g.order))
	var out []Key
	var stack []Key

	var visit func(k Key) error
	visit = func(k Key) error {
		switch marks[k] {
		case done:
			return nil
		case inProgress:
			start := 0
			for i, s := range stack {
				if s == k {
					start = i
					break
				}
			}
			cycle := append(append([]Key{}, stack[start:]...), k)
			return &CycleDetectedError{Cycle: cycle}
		}
		marks[k] = inProgress
		stack = append(stack, k)

		deps := make([]Key, 0, len(g.deps[k]))
		for d := range g.deps[k] {
			deps = append(deps, d)
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		marks[k] = done
		out = append(out, k)
		return nil
	}

	for _, k := range g.order {
		if err := visit(k); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CycleDetectedError reports a dependency cycle found while ordering call
// sites for resolution.
type CycleDetectedError struct {
	Cycle []Key
}

func (e *CycleDetectedError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		parts[i] = string(k)
	}
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return fmt.Sprintf("macro: dependency cycle detected: %s", s)
}
