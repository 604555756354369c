// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package host

import (
	"fmt"
	"os"

	"github.com/dop251/goja"

	"pod/internal/macro/ast"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// toGoja converts an ast.Value (the folded form of a macro argument) into
// a goja.Value the VM can operate on.
func toGoja(vm *goja.Runtime, v ast.Value) goja.Value {
	switch v.Kind {
	case ast.List:
		arr := make([]interface{}, len(v.ListVal))
		for i, el := range v.ListVal {
			arr[i] = toGoNative(el)
		}
		return vm.ToValue(arr)
	case ast.Map:
		obj := make(map[string]interface{}, len(v.MapVal))
		for k, val := range v.MapVal {
			obj[k] = toGoNative(val)
		}
		return vm.ToValue(obj)
	default:
		return vm.ToValue(v.Scalar)
	}
}

// toGoNative recursively unwraps an ast.Value into plain Go data (used when
// building nested arrays/objects for ToValue, which goja converts in one
// pass from native Go types).
func toGoNative(v ast.Value) interface{} {
	switch v.Kind {
	case ast.List:
		arr := make([]interface{}, len(v.ListVal))
		for i, el := range v.ListVal {
			arr[i] = toGoNative(el)
		}
		return arr
	case ast.Map:
		obj := make(map[string]interface{}, len(v.MapVal))
		for k, val := range v.MapVal {
			obj[k] = toGoNative(val)
		}
		return obj
	default:
		return v.Scalar
	}
}

// fromGoja folds a macro's JS return value back to an ast.Value via goja's
// Export(), which already gives us plain Go scalars, []interface{}, and
// map[string]interface{}.
func fromGoja(v goja.Value) (ast.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ast.Value{Kind: ast.Scalar, Scalar: nil}, nil
	}
	return fromNative(v.Export())
}

func fromNative(x interface{}) (ast.Value, error) {
	switch t := x.(type) {
	case nil:
		return ast.Value{Kind: ast.Scalar, Scalar: nil}, nil
	case string, bool:
		return ast.Value{Kind: ast.Scalar, Scalar: t}, nil
	case int64:
		return ast.Value{Kind: ast.Scalar, Scalar: float64(t)}, nil
	case float64:
		return ast.Value{Kind: ast.Scalar, Scalar: t}, nil
	case []interface{}:
		list := make([]ast.Value, 0, len(t))
		for _, el := range t {
			v, err := fromNative(el)
			if err != nil {
				return ast.Value{}, err
			}
			list = append(list, v)
		}
		return ast.Value{Kind: ast.List, ListVal: list}, nil
	case map[string]interface{}:
		m := make(map[string]ast.Value, len(t))
		for k, val := range t {
			v, err := fromNative(val)
			if err != nil {
				return ast.Value{}, err
			}
			m[k] = v
		}
		return ast.Value{Kind: ast.Map, MapVal: m}, nil
	default:
		return ast.Value{}, fmt.Errorf("host: macro result of unsupported type %T cannot be folded to a value", x)
	}
}
