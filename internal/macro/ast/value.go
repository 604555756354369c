// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package ast

import (
	"fmt"
	"sort"
)

// ValueKind tags the variant a Value holds — a dynamic tagged union of
// scalar, list, and map, per §9's "value extraction" design note.
type ValueKind int

const (
	Scalar ValueKind = iota
	List
	Map
)

// Value is the dynamic value-form a computed macro site's AST result is
// folded into, so that a downstream macro consuming this binding sees a
// plain value rather than an opaque node (§4.2 Phase 4).
type Value struct {
	Kind ValueKind

	// Scalar holds a string, float64, bool, or nil (null/undefined collapse
	// to nil — the distinction is not observable once extracted).
	Scalar any

	ListVal []Value
	MapVal  map[string]Value
}

// ToValue folds an AST node into its dynamic value-form. Only literal,
// array, and object nodes are extractable — anything else (a call that
// didn't resolve to a literal, a member access, ...) is an error, since a
// macro's return value must bottom out in concrete data for downstream
// macros to consume as a plain value.
func ToValue(n *Node) (Value, error) {
	if n == nil {
		return Value{Kind: Scalar, Scalar: nil}, nil
	}
	switch n.Kind {
	case StringLiteral:
		return Value{Kind: Scalar, Scalar: n.Str}, nil
	case NumericLiteral:
		return Value{Kind: Scalar, Scalar: n.Num}, nil
	case BooleanLiteral:
		return Value{Kind: Scalar, Scalar: n.Bool}, nil
	case NullLiteral, UndefinedLiteral:
		return Value{Kind: Scalar, Scalar: nil}, nil
	case ArrayLiteral:
		list := make([]Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			if el.Kind == SpreadElement {
				spread, err := ToValue(el.Argument)
				if err != nil {
					return Value{}, err
				}
				if spread.Kind != List {
					return Value{}, fmt.Errorf("ast: cannot spread a non-list value into an array")
				}
				list = append(list, spread.ListVal...)
				continue
			}
			v, err := ToValue(el)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return Value{Kind: List, ListVal: list}, nil
	case ObjectLiteral:
		m := make(map[string]Value, len(n.Properties))
		for _, p := range n.Properties {
			if p.Spread {
				spread, err := ToValue(p.Value)
				if err != nil {
					return Value{}, err
				}
				if spread.Kind != Map {
					return Value{}, fmt.Errorf("ast: cannot spread a non-object value into an object")
				}
				for k, v := range spread.MapVal {
					m[k] = v
				}
				continue
			}
			if p.Computed {
				return Value{}, fmt.Errorf("ast: computed object keys are not compile-time-knowable")
			}
			v, err := ToValue(p.Value)
			if err != nil {
				return Value{}, err
			}
			m[p.Name] = v
		}
		return Value{Kind: Map, MapVal: m}, nil
	default:
		return Value{}, fmt.Errorf("ast: node kind %d has no value-form (not a literal, array, or object)", n.Kind)
	}
}

// FromValue is the inverse fold: it reconstructs an AST node from a dynamic
// value, used when a Go value computed by a macro (via the host runtime's
// export of a JS value) must be represented as a node for storage on a site
// or for splicing into the printed output.
func FromValue(v Value) *Node {
	switch v.Kind {
	case List:
		elements := make([]*Node, 0, len(v.ListVal))
		for _, el := range v.ListVal {
			elements = append(elements, FromValue(el))
		}
		return Array(elements...)
	case Map:
		keys := make([]string, 0, len(v.MapVal))
		for k := range v.MapVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		props := make([]*Node, 0, len(keys))
		for _, k := range keys {
			props = append(props, Prop(k, FromValue(v.MapVal[k])))
		}
		return Object(props...)
	default:
		return scalarToNode(v.Scalar)
	}
}

func scalarToNode(s any) *Node {
	switch x := s.(type) {
	case nil:
		return Null()
	case string:
		return String(x)
	case bool:
		return Boolean(x)
	case float64:
		return Number(x)
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	default:
		return RawText(fmt.Sprintf("%v", x))
	}
}
