// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package host runs macro module bodies in an embedded ECMAScript VM
// (github.com/dop251/goja), converting arguments and results to and from
// internal/macro/ast.Value at the boundary so the rest of the expander
// never touches a goja.Value directly.
package host

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dop251/goja"

	"pod/internal/macro/ast"
	"pod/internal/macro/graph"
	"pod/pkg/store"
)

// Loader resolves a module specifier to its source text. A relative
// specifier ("./macros") is resolved against the importing file's
// directory by the caller before Loader ever sees it; Loader only deals in
// already-resolved, absolute specifiers.
type Loader interface {
	Load(specifier string) (string, error)
}

// FileLoader reads macro module source from disk, rooted at ProjectRoot.
type FileLoader struct {
	ProjectRoot string
}

func (l FileLoader) Load(specifier string) (string, error) {
	path := specifier
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.ProjectRoot, specifier)
	}
	data, err := readFile(path)
	if err != nil {
		return "", fmt.Errorf("host: loading module %q: %w", specifier, err)
	}
	return string(data), nil
}

// Runtime caches compiled macro modules by specifier and executes exported
// functions in a fresh goja.Runtime per call, so one macro's global state
// can never leak into another's — each invocation runs in isolation.
type Runtime struct {
	mu       sync.Mutex
	loader   Loader
	programs map[string]*goja.Program
	timeout  time.Duration
}

// New constructs a Runtime. A zero timeout disables the interrupt
// mechanism.
func New(loader Loader, timeout time.Duration) *Runtime {
	return &Runtime{
		loader:   loader,
		programs: make(map[string]*goja.Program),
		timeout:  timeout,
	}
}

// ClearCache evicts a compiled module so the next Call re-reads and
// recompiles it from the Loader, picking up an edited macro file without
// restarting the process. An empty specifier clears every cached module.
func (r *Runtime) ClearCache(specifier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if specifier == "" {
		r.programs = make(map[string]*goja.Program)
		return
	}
	delete(r.programs, specifier)
}

func (r *Runtime) program(specifier string) (*goja.Program, error) {
	r.mu.Lock()
	if p, ok := r.programs[specifier]; ok {
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	source, err := r.loader.Load(specifier)
	if err != nil {
		return nil, err
	}
	prog, err := goja.Compile(specifier, source, false)
	if err != nil {
		return nil, &CompileError{Specifier: specifier, Err: err}
	}

	r.mu.Lock()
	r.programs[specifier] = prog
	r.mu.Unlock()
	return prog, nil
}

// Context is the single extra object every macro export receives as its
// last argument: read-only facts about where it's being expanded from, plus
// the side-channel handles a macro body is allowed to reach for — the
// call-site node, an AST factory, a handle onto the dependency graph, the
// shared cross-macro Store, and an error() function a macro calls to fail
// its own invocation with a message instead of returning a malformed value.
type Context struct {
	ProjectRoot string
	File        string
	CallSite    *ast.Node
	Graph       *graph.Graph
	Store       *store.Store
}

// Call loads (or reuses the cached compile of) the module at specifier,
// invokes its export named fn with args folded to JS values, appends a
// context object as the final argument, and folds the return value back to
// an ast.Value. A macro that runs past the configured timeout is
// interrupted and reported as a *TimeoutError.
func (r *Runtime) Call(specifier, fn string, args []ast.Value, ctx Context) (ast.Value, error) {
	prog, err := r.program(specifier)
	if err != nil {
		return ast.Value{}, err
	}

	vm := goja.New()
	if _, err := vm.RunProgram(prog); err != nil {
		return ast.Value{}, &ExecutionError{Specifier: specifier, Export: fn, Err: err}
	}

	exported := vm.Get(fn)
	if exported == nil || goja.IsUndefined(exported) {
		return ast.Value{}, &ExportNotFoundError{Specifier: specifier, Export: fn}
	}
	callable, ok := goja.AssertFunction(exported)
	if !ok {
		return ast.Value{}, &ExportNotFoundError{Specifier: specifier, Export: fn}
	}

	gojaArgs := make([]goja.Value, 0, len(args)+1)
	for _, a := range args {
		gojaArgs = append(gojaArgs, toGoja(vm, a))
	}
	gojaArgs = append(gojaArgs, contextObject(vm, ctx))

	if r.timeout > 0 {
		done := make(chan struct{})
		timer := time.AfterFunc(r.timeout, func() { vm.Interrupt("macro timed out") })
		defer func() {
			close(done)
			timer.Stop()
		}()
	}

	result, callErr := callable(goja.Undefined(), gojaArgs...)
	if callErr != nil {
		if ie, ok := callErr.(*goja.InterruptedError); ok {
			return ast.Value{}, &TimeoutError{Specifier: specifier, Export: fn, Timeout: r.timeout, Cause: ie}
		}
		return ast.Value{}, &ExecutionError{Specifier: specifier, Export: fn, Err: callErr}
	}

	return fromGoja(result)
}

func contextObject(vm *goja.Runtime, ctx Context) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("projectRoot", ctx.ProjectRoot)
	_ = obj.Set("file", ctx.File)
	_ = obj.Set("callSite", ctx.CallSite)
	_ = obj.Set("ast", astFactoryObject(vm))
	_ = obj.Set("graph", graphHandleObject(vm, ctx.Graph))
	_ = obj.Set("store", storeHandleObject(vm, ctx.Store))
	_ = obj.Set("error", func(call goja.FunctionCall) goja.Value {
		panic(vm.ToValue(call.Argument(0).String()))
	})
	return obj
}

// astFactoryObject exposes internal/macro/ast's node constructors so a
// macro can build a result shaped like hand-written source (e.g. a
// synthesized call or member expression) instead of only plain values.
// goja wraps each Go func via reflection, converting JS arguments to the
// Go parameter types automatically.
func astFactoryObject(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("ident", ast.Ident)
	_ = obj.Set("string", ast.String)
	_ = obj.Set("number", ast.Number)
	_ = obj.Set("boolean", ast.Boolean)
	_ = obj.Set("null", ast.Null)
	_ = obj.Set("undefined", ast.Undefined)
	_ = obj.Set("array", ast.Array)
	_ = obj.Set("object", ast.Object)
	_ = obj.Set("prop", ast.Prop)
	_ = obj.Set("call", ast.Call)
	_ = obj.Set("member", ast.Member)
	return obj
}

// graphHandleObject exposes a read-only view of the dependency graph: a
// macro can check whether another site has already resolved, and read its
// value if so, without being able to mutate the graph itself.
func graphHandleObject(vm *goja.Runtime, g *graph.Graph) *goja.Object {
	obj := vm.NewObject()
	if g == nil {
		return obj
	}
	_ = obj.Set("isResolved", func(key string) bool {
		return g.IsResolved(graph.Key(key))
	})
	_ = obj.Set("getResult", func(key string) goja.Value {
		v, ok := g.GetResult(graph.Key(key))
		if !ok {
			return goja.Undefined()
		}
		return toGoja(vm, v)
	})
	return obj
}

// storeHandleObject exposes pkg/store's Put/Get/Keys to a macro body, so
// one macro can register a value for a later macro (in any file) to read
// back without the graph's call/result relationship between them.
func storeHandleObject(vm *goja.Runtime, s *store.Store) *goja.Object {
	obj := vm.NewObject()
	if s == nil {
		return obj
	}
	_ = obj.Set("put", func(key string, val goja.Value) {
		v, err := fromGoja(val)
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		s.Put(key, v)
	})
	_ = obj.Set("get", func(key string) goja.Value {
		vals := s.Get(key)
		out := make([]interface{}, 0, len(vals))
		for _, v := range vals {
			if av, ok := v.(ast.Value); ok {
				out = append(out, toGoNative(av))
				continue
			}
			out = append(out, v)
		}
		return vm.ToValue(out)
	})
	_ = obj.Set("keys", func() []string {
		return s.Keys()
	})
	return obj
}
