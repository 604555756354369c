// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package expand is the macro expander: it turns source containing calls
// to `$`-suffixed identifiers into source with those calls replaced by
// their compile-time result, recursing through imported macro modules and
// imported constant bindings as needed.
//
// Expansion proceeds in five phases per call to Expand: discover every
// call site and binding in the file (internal/macro/parser.Discover),
// resolve each binding's provenance (local literal, local macro result, or
// an imported one), build the dependency relationships between sites
// implicitly through recursive, memoized resolution (internal/macro/graph
// is the memoization/registry layer — a site is never executed twice),
// run each macro through the host runtime once its arguments are known,
// and splice the results back into the original bytes, leaving everything
// else untouched.
package expand

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pod/internal/macro/graph"
	"pod/internal/macro/host"
	"pod/internal/macro/parser"
	"pod/pkg/logging"
	"pod/pkg/store"
)

// Reader abstracts reading an imported file's source, so tests can supply
// an in-memory filesystem instead of touching disk.
type Reader func(path string) ([]byte, error)

// Expander resolves and rewrites macro calls for a project rooted at
// ProjectRoot. One Expander may be reused across many files in a build:
// the Graph memoizes every site it has already resolved, so a constant
// imported by several files is only computed once.
type Expander struct {
	ProjectRoot string
	Runtime     *host.Runtime
	Store       *store.Store
	Logger      logging.Logger
	Read        Reader

	graph     *graph.Graph
	files     map[string]*fileCtx
	visiting  []graph.Key // call stack of sites currently resolving, in entry order
	synthetic int
}

// New constructs an Expander. Logger and Read may be nil; nil Logger
// discards diagnostics, nil Read defaults to os.ReadFile.
func New(projectRoot string, rt *host.Runtime, st *store.Store, logger logging.Logger) *Expander {
	return &Expander{
		ProjectRoot: projectRoot,
		Runtime:     rt,
		Store:       st,
		Logger:      logger,
		Read:        os.ReadFile,
		graph:       graph.New(),
		files:       make(map[string]*fileCtx),
	}
}

// Reset clears every memoized site and discovered file, so the next Expand
// call starts from a clean graph, which is what makes repeated expansion of
// the same source deterministic.
func (e *Expander) Reset() {
	e.graph = graph.New()
	e.files = make(map[string]*fileCtx)
	e.visiting = nil
	if e.Store != nil {
		e.Store.Reset()
	}
}

func (e *Expander) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Warn(fmt.Sprintf(format, args...))
	}
}

// fileCtx is the discovery result for one file plus the lookup tables
// resolution needs: imported bindings by local name, declarations by name,
// and the raw source (for Phase 5 splicing).
type fileCtx struct {
	path string
	src  string
	doc  *parser.File

	importByLocal map[string]importBinding
	declByName    map[string]*parser.Declaration
}

type importBinding struct {
	specifier string
	exported  string // the name on the exporting side, or "default"/"*"
}

// Expand rewrites every macro call in source, which was read from
// filePath. A source with no `$(` substring anywhere is returned unchanged
// without running discovery at all — the fast path for the overwhelming
// majority of files, which use no macros.
func (e *Expander) Expand(source, filePath string) (string, error) {
	if !strings.Contains(source, "$(") {
		return source, nil
	}

	fc, err := e.loadFileFromSource(filePath, source)
	if err != nil {
		return "", err
	}

	for _, call := range fc.doc.Calls {
		key := callKey(fc, call)
		if _, err := e.resolveCall(fc, call, key); err != nil {
			if call.Bound != "" {
				return "", err
			}
			// Inline calls are recoverable: log and leave the original
			// bytes in place (rewrite.go splices nothing for a key with
			// no memoized result) rather than failing the whole file.
			e.logf("macro: inline call to %s in %s failed: %v", call.Callee, fc.path, err)
			continue
		}
	}

	return rewrite(fc, e.graph)
}

func (e *Expander) loadFileFromSource(path, source string) (*fileCtx, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.ProjectRoot, abs)
	}
	if fc, ok := e.files[abs]; ok {
		return fc, nil
	}
	doc, err := parser.Discover(source)
	if err != nil {
		return nil, fmt.Errorf("expand: discovering %s: %w", path, err)
	}
	fc := buildFileCtx(abs, source, doc)
	e.files[abs] = fc
	return fc, nil
}

func (e *Expander) loadFile(path string) (*fileCtx, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.ProjectRoot, abs)
	}
	if fc, ok := e.files[abs]; ok {
		return fc, nil
	}
	read := e.Read
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(abs)
	if err != nil {
		return nil, &ResolutionError{Reason: fmt.Sprintf("reading %s: %v", abs, err)}
	}
	doc, err := parser.Discover(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand: discovering %s: %w", abs, err)
	}
	fc := buildFileCtx(abs, string(data), doc)
	e.files[abs] = fc
	return fc, nil
}

func buildFileCtx(path, src string, doc *parser.File) *fileCtx {
	fc := &fileCtx{
		path:          path,
		src:           src,
		doc:           doc,
		importByLocal: make(map[string]importBinding),
		declByName:    make(map[string]*parser.Declaration),
	}
	for _, imp := range doc.Imports {
		for _, b := range imp.Bindings {
			exported := b.Imported
			fc.importByLocal[b.Local] = importBinding{specifier: imp.Specifier, exported: exported}
		}
	}
	for i := range doc.Declarations {
		d := &doc.Declarations[i]
		fc.declByName[d.Name] = d
	}
	return fc
}

func callKey(fc *fileCtx, call parser.MacroCall) graph.Key {
	if call.Bound != "" {
		return graph.CreateKey(fc.path, call.Bound)
	}
	return graph.CreateInlineKey(fc.path, call.Start)
}

