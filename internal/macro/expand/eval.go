// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package expand

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"pod/internal/macro/ast"
	"pod/internal/macro/graph"
	"pod/internal/macro/host"
	"pod/internal/macro/parser"
)

// enterVisiting pushes key onto the in-progress resolution stack, or
// reports the full cycle (from key's first occurrence through key itself)
// if it's already on the stack. Every resolution path that can re-enter
// itself through a chain of identifiers — macro calls and plain
// const-to-const references alike — must guard through this, or a mutually
// recursive binding overflows the stack instead of surfacing as an error.
func (e *Expander) enterVisiting(key graph.Key) error {
	for i, k := range e.visiting {
		if k == key {
			cycle := append(append([]graph.Key{}, e.visiting[i:]...), key)
			return &graph.CycleDetectedError{Cycle: cycle}
		}
	}
	e.visiting = append(e.visiting, key)
	return nil
}

func (e *Expander) leaveVisiting() {
	e.visiting = e.visiting[:len(e.visiting)-1]
}

// resolveCall resolves a single call site's arguments, runs its macro
// through the host runtime, and memoizes the result on the graph. Results
// are cached by key, so a binding referenced from many call sites (or many
// files) is only ever executed once.
func (e *Expander) resolveCall(fc *fileCtx, call parser.MacroCall, key graph.Key) (ast.Value, error) {
	if v, ok := e.graph.GetResult(key); ok {
		return v, nil
	}
	if cycleErr := e.enterVisiting(key); cycleErr != nil {
		return ast.Value{}, cycleErr
	}
	defer e.leaveVisiting()

	imp, ok := fc.importByLocal[call.Callee]
	if !ok {
		return ast.Value{}, &ResolutionError{
			File:   fc.path,
			Name:   call.Callee,
			Reason: "macro is not imported in this file",
		}
	}

	args := make([]ast.Value, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := e.resolveValue(fc, a)
		if err != nil {
			return ast.Value{}, err
		}
		args = append(args, v)
	}

	e.graph.AddSite(&graph.Site{Key: key, File: fc.path, Callee: call.Callee, Args: call.Args})

	specifier, err := e.resolveSpecifier(fc.path, imp.specifier)
	if err != nil {
		return ast.Value{}, err
	}

	result, err := e.Runtime.Call(specifier, imp.exported, args, host.Context{
		ProjectRoot: e.ProjectRoot,
		File:        fc.path,
		CallSite:    ast.Call(ast.Ident(call.Callee), call.Args...),
		Graph:       e.graph,
		Store:       e.Store,
	})
	if err != nil {
		return ast.Value{}, fmt.Errorf("expand: resolving %s in %s: %w", call.Callee, fc.path, err)
	}

	e.graph.SetResult(key, result)
	return result, nil
}

// resolveSpecifier turns an import specifier into an absolute path the
// host.Loader can read. Only relative specifiers (starting with "." or
// "/") resolve; a package specifier (a bare module name) can't be executed
// as a macro module, since it isn't source this tool controls or can
// sandbox the way it does a project-relative file.
func (e *Expander) resolveSpecifier(fromFile, specifier string) (string, error) {
	var path string
	switch {
	case strings.HasPrefix(specifier, "."):
		path = filepath.Join(filepath.Dir(fromFile), specifier)
	case strings.HasPrefix(specifier, "/"):
		path = filepath.Join(e.ProjectRoot, specifier)
	default:
		return "", &ResolutionError{
			File:   fromFile,
			Name:   specifier,
			Reason: "package imports cannot be resolved as macro modules; only relative paths can",
		}
	}
	if filepath.Ext(path) == "" {
		path += ".ts"
	}
	return path, nil
}

// resolveValue folds an argument (or template interpolation, or a plain
// const's initializer) to a concrete ast.Value, resolving every identifier
// it references — recursing into other macro call sites and, for imported
// bindings, into other files — and constant-folding the restricted
// operator set internal/macro/parser/expr.go parses.
func (e *Expander) resolveValue(fc *fileCtx, n *ast.Node) (ast.Value, error) {
	if n == nil {
		return ast.Value{Kind: ast.Scalar, Scalar: nil}, nil
	}
	switch n.Kind {
	case ast.StringLiteral, ast.NumericLiteral, ast.BooleanLiteral, ast.NullLiteral, ast.UndefinedLiteral:
		return ast.ToValue(n)

	case ast.Identifier:
		return e.resolveIdentifier(fc, n.Name)

	case ast.ArrayLiteral:
		list := make([]ast.Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			if el.Kind == ast.SpreadElement {
				v, err := e.resolveValue(fc, el.Argument)
				if err != nil {
					return ast.Value{}, err
				}
				if v.Kind != ast.List {
					return ast.Value{}, &ResolutionError{File: fc.path, Reason: "cannot spread a non-list value into an array"}
				}
				list = append(list, v.ListVal...)
				continue
			}
			v, err := e.resolveValue(fc, el)
			if err != nil {
				return ast.Value{}, err
			}
			list = append(list, v)
		}
		return ast.Value{Kind: ast.List, ListVal: list}, nil

	case ast.ObjectLiteral:
		m := make(map[string]ast.Value, len(n.Properties))
		for _, p := range n.Properties {
			if p.Spread {
				v, err := e.resolveValue(fc, p.Value)
				if err != nil {
					return ast.Value{}, err
				}
				if v.Kind != ast.Map {
					return ast.Value{}, &ResolutionError{File: fc.path, Reason: "cannot spread a non-object value into an object"}
				}
				for k, val := range v.MapVal {
					m[k] = val
				}
				continue
			}
			if p.Computed {
				keyVal, err := e.resolveValue(fc, p.KeyExpr)
				if err != nil {
					return ast.Value{}, err
				}
				key, ok := keyVal.Scalar.(string)
				if !ok {
					return ast.Value{}, &ResolutionError{File: fc.path, Reason: "computed object key must resolve to a string"}
				}
				v, err := e.resolveValue(fc, p.Value)
				if err != nil {
					return ast.Value{}, err
				}
				m[key] = v
				continue
			}
			v, err := e.resolveValue(fc, p.Value)
			if err != nil {
				return ast.Value{}, err
			}
			m[p.Name] = v
		}
		return ast.Value{Kind: ast.Map, MapVal: m}, nil

	case ast.TemplateLiteral:
		var sb strings.Builder
		for i, q := range n.Quasis {
			sb.WriteString(q)
			if i < len(n.Exprs) {
				v, err := e.resolveValue(fc, n.Exprs[i])
				if err != nil {
					return ast.Value{}, err
				}
				sb.WriteString(scalarString(v))
			}
		}
		return ast.Value{Kind: ast.Scalar, Scalar: sb.String()}, nil

	case ast.UnaryExpr:
		v, err := e.resolveValue(fc, n.Argument)
		if err != nil {
			return ast.Value{}, err
		}
		return evalUnary(n.Name, v)

	case ast.BinaryExpr:
		l, err := e.resolveValue(fc, n.Left)
		if err != nil {
			return ast.Value{}, err
		}
		r, err := e.resolveValue(fc, n.Right)
		if err != nil {
			return ast.Value{}, err
		}
		return evalBinary(n.Name, l, r)

	case ast.LogicalExpr:
		l, err := e.resolveValue(fc, n.Left)
		if err != nil {
			return ast.Value{}, err
		}
		switch n.Name {
		case "&&":
			if !truthy(l) {
				return l, nil
			}
			return e.resolveValue(fc, n.Right)
		case "||":
			if truthy(l) {
				return l, nil
			}
			return e.resolveValue(fc, n.Right)
		case "??":
			if l.Scalar != nil || l.Kind != ast.Scalar {
				return l, nil
			}
			return e.resolveValue(fc, n.Right)
		default:
			return ast.Value{}, &ResolutionError{File: fc.path, Reason: fmt.Sprintf("unsupported logical operator %q", n.Name)}
		}

	case ast.ConditionalExpr:
		test, err := e.resolveValue(fc, n.Test)
		if err != nil {
			return ast.Value{}, err
		}
		if truthy(test) {
			return e.resolveValue(fc, n.Consequent)
		}
		return e.resolveValue(fc, n.Alternate)

	case ast.MemberExpr:
		obj, err := e.resolveValue(fc, n.Object)
		if err != nil {
			return ast.Value{}, err
		}
		if n.Computed {
			keyVal, err := e.resolveValue(fc, n.PropertyExpr)
			if err != nil {
				return ast.Value{}, err
			}
			return evalMember(obj, keyVal)
		}
		return evalMember(obj, ast.Value{Kind: ast.Scalar, Scalar: n.Name})

	case ast.CallExpr:
		callee := n.Callee
		if callee.Kind != ast.Identifier || !strings.HasSuffix(callee.Name, "$") {
			return ast.Value{}, &ResolutionError{File: fc.path, Reason: "only calls to a macro identifier are supported inside an argument"}
		}
		imp, ok := fc.importByLocal[callee.Name]
		if !ok {
			return ast.Value{}, &ResolutionError{File: fc.path, Name: callee.Name, Reason: "macro is not imported in this file"}
		}
		args := make([]ast.Value, 0, len(n.Arguments))
		for _, a := range n.Arguments {
			v, err := e.resolveValue(fc, a)
			if err != nil {
				return ast.Value{}, err
			}
			args = append(args, v)
		}
		e.synthetic++
		key := graph.CreateInlineKey(fc.path, -e.synthetic)
		specifier, err := e.resolveSpecifier(fc.path, imp.specifier)
		if err != nil {
			return ast.Value{}, err
		}
		result, err := e.Runtime.Call(specifier, imp.exported, args, host.Context{
			ProjectRoot: e.ProjectRoot,
			File:        fc.path,
			CallSite:    ast.Call(ast.Ident(callee.Name), n.Arguments...),
			Graph:       e.graph,
			Store:       e.Store,
		})
		if err != nil {
			return ast.Value{}, fmt.Errorf("expand: resolving nested call to %s in %s: %w", callee.Name, fc.path, err)
		}
		e.graph.SetResult(key, result)
		return result, nil

	default:
		return ast.Value{}, &ResolutionError{File: fc.path, Reason: fmt.Sprintf("node kind %d cannot be resolved to a value", n.Kind)}
	}
}

// resolveIdentifier resolves a bare identifier referenced from within a
// macro argument: a local literal const, a local macro-bound const (whose
// site is resolved on demand if it hasn't run yet), or an imported binding
// (which may itself be a macro result defined in another file).
func (e *Expander) resolveIdentifier(fc *fileCtx, name string) (ast.Value, error) {
	if decl, ok := fc.declByName[name]; ok {
		if decl.Call != nil {
			return e.resolveCall(fc, *decl.Call, graph.CreateKey(fc.path, name))
		}

		key := graph.CreateKey(fc.path, name)
		if cycleErr := e.enterVisiting(key); cycleErr != nil {
			return ast.Value{}, cycleErr
		}
		defer e.leaveVisiting()

		initNode, err := parser.ParseExpr(decl.Init)
		if err != nil {
			return ast.Value{}, &ResolutionError{File: fc.path, Name: name, Reason: fmt.Sprintf("initializer is not a resolvable expression: %v", err)}
		}
		return e.resolveValue(fc, initNode)
	}

	imp, ok := fc.importByLocal[name]
	if !ok {
		return ast.Value{}, &ResolutionError{File: fc.path, Name: name, Reason: "unresolved identifier"}
	}
	if strings.HasSuffix(name, "$") {
		return ast.Value{}, &ResolutionError{File: fc.path, Name: name, Reason: "a macro identifier cannot be used as a plain value; call it"}
	}
	return e.resolveExternalBinding(imp.specifier, imp.exported, fc.path)
}

// resolveExternalBinding follows a relative import to another file and
// resolves the named binding there, recursing through that file's own
// imports and macro call sites as needed.
func (e *Expander) resolveExternalBinding(specifier, exported, fromFile string) (ast.Value, error) {
	path, err := e.resolveSpecifier(fromFile, specifier)
	if err != nil {
		return ast.Value{}, err
	}
	target, err := e.loadFile(path)
	if err != nil {
		return ast.Value{}, err
	}
	return e.resolveIdentifier(target, exported)
}

func truthy(v ast.Value) bool {
	switch v.Kind {
	case ast.List, ast.Map:
		return true
	default:
		switch s := v.Scalar.(type) {
		case nil:
			return false
		case bool:
			return s
		case string:
			return s != ""
		case float64:
			return s != 0
		default:
			return true
		}
	}
}

func scalarString(v ast.Value) string {
	switch s := v.Scalar.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case float64:
		return ast.Print(ast.Number(s))
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asFloat(v ast.Value) (float64, bool) {
	f, ok := v.Scalar.(float64)
	return f, ok
}

func evalUnary(op string, v ast.Value) (ast.Value, error) {
	switch op {
	case "!":
		return ast.Value{Kind: ast.Scalar, Scalar: !truthy(v)}, nil
	case "-":
		f, ok := asFloat(v)
		if !ok {
			return ast.Value{}, fmt.Errorf("expand: unary '-' requires a number")
		}
		return ast.Value{Kind: ast.Scalar, Scalar: -f}, nil
	case "+":
		f, ok := asFloat(v)
		if !ok {
			return ast.Value{}, fmt.Errorf("expand: unary '+' requires a number")
		}
		return ast.Value{Kind: ast.Scalar, Scalar: f}, nil
	default:
		return ast.Value{}, fmt.Errorf("expand: unsupported unary operator %q", op)
	}
}

func evalBinary(op string, l, r ast.Value) (ast.Value, error) {
	if op == "+" {
		if ls, ok := l.Scalar.(string); ok {
			return ast.Value{Kind: ast.Scalar, Scalar: ls + scalarString(r)}, nil
		}
		if rs, ok := r.Scalar.(string); ok {
			return ast.Value{Kind: ast.Scalar, Scalar: scalarString(l) + rs}, nil
		}
	}
	switch op {
	case "===", "==":
		return ast.Value{Kind: ast.Scalar, Scalar: scalarEqual(l, r)}, nil
	case "!==", "!=":
		return ast.Value{Kind: ast.Scalar, Scalar: !scalarEqual(l, r)}, nil
	}

	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return ast.Value{}, fmt.Errorf("expand: operator %q requires two numbers", op)
	}
	switch op {
	case "+":
		return ast.Value{Kind: ast.Scalar, Scalar: lf + rf}, nil
	case "-":
		return ast.Value{Kind: ast.Scalar, Scalar: lf - rf}, nil
	case "*":
		return ast.Value{Kind: ast.Scalar, Scalar: lf * rf}, nil
	case "/":
		return ast.Value{Kind: ast.Scalar, Scalar: lf / rf}, nil
	case "%":
		return ast.Value{Kind: ast.Scalar, Scalar: math.Mod(lf, rf)}, nil
	case "**":
		return ast.Value{Kind: ast.Scalar, Scalar: math.Pow(lf, rf)}, nil
	case "<":
		return ast.Value{Kind: ast.Scalar, Scalar: lf < rf}, nil
	case ">":
		return ast.Value{Kind: ast.Scalar, Scalar: lf > rf}, nil
	case "<=":
		return ast.Value{Kind: ast.Scalar, Scalar: lf <= rf}, nil
	case ">=":
		return ast.Value{Kind: ast.Scalar, Scalar: lf >= rf}, nil
	default:
		return ast.Value{}, fmt.Errorf("expand: unsupported binary operator %q", op)
	}
}

func scalarEqual(l, r ast.Value) bool {
	if l.Kind != ast.Scalar || r.Kind != ast.Scalar {
		return false
	}
	return l.Scalar == r.Scalar
}

func evalMember(obj, key ast.Value) (ast.Value, error) {
	switch obj.Kind {
	case ast.Map:
		name, ok := key.Scalar.(string)
		if !ok {
			return ast.Value{}, fmt.Errorf("expand: object member access requires a string key")
		}
		v, ok := obj.MapVal[name]
		if !ok {
			return ast.Value{Kind: ast.Scalar, Scalar: nil}, nil
		}
		return v, nil
	case ast.List:
		idx, ok := key.Scalar.(float64)
		if !ok || int(idx) < 0 || int(idx) >= len(obj.ListVal) {
			return ast.Value{Kind: ast.Scalar, Scalar: nil}, nil
		}
		return obj.ListVal[int(idx)], nil
	default:
		return ast.Value{}, fmt.Errorf("expand: cannot access a member of a scalar value")
	}
}
