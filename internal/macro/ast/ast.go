// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package ast is a sum-type representation of the expression grammar the
// macro expander resolves at compile time: literals, call, member-access,
// identifier, template, object/array, and the handful of operators macro
// arguments are allowed to use. It is not a general TypeScript AST — only
// the restricted grammar macro argument resolution needs.
package ast

// Kind tags the variant a Node holds.
type Kind int

const (
	Identifier Kind = iota
	StringLiteral
	NumericLiteral
	BooleanLiteral
	NullLiteral
	UndefinedLiteral
	TemplateLiteral
	ObjectLiteral
	ArrayLiteral
	SpreadElement
	Property
	UnaryExpr
	BinaryExpr
	LogicalExpr
	ConditionalExpr
	MemberExpr
	CallExpr
	Raw // verbatim source text the printer emits unchanged (for spliced regions)
)

// Node is the sum type. Only the fields relevant to Kind are populated;
// callers must not assume zero-value fields on other variants mean anything.
type Node struct {
	Kind Kind

	// Identifier.Name, MemberExpr non-computed property name, Property key
	// (when not computed), UnaryExpr/BinaryExpr/LogicalExpr operator text.
	Name string

	// StringLiteral value, Raw verbatim text.
	Str string

	// NumericLiteral value.
	Num float64

	// BooleanLiteral value.
	Bool bool

	// TemplateLiteral: alternating literal chunks (Quasis) and the
	// interpolated expressions between them (Exprs). len(Quasis) == len(Exprs)+1.
	Quasis []string
	Exprs  []*Node

	// ObjectLiteral properties, in source order.
	Properties []*Node

	// Property: Key (Name if !Computed, else KeyExpr), Value, and whether
	// this property is `...expr` (Spread) — in which case Value holds the
	// spread argument and Key/Shorthand are unused.
	KeyExpr   *Node
	Computed  bool
	Value     *Node
	Shorthand bool
	Spread    bool

	// ArrayLiteral / call-argument-list elements, in source order. Elements
	// may themselves be SpreadElement nodes.
	Elements []*Node

	// SpreadElement / UnaryExpr operand.
	Argument *Node
	Prefix   bool

	// BinaryExpr / LogicalExpr operands.
	Left  *Node
	Right *Node

	// ConditionalExpr.
	Test       *Node
	Consequent *Node
	Alternate  *Node

	// MemberExpr: Object[.Name | [PropertyExpr]].
	Object       *Node
	PropertyExpr *Node

	// CallExpr.
	Callee    *Node
	Arguments []*Node
}

// Factory helpers. Kept small and literal so callers building synthesized
// results (e.g. a macro's extracted value converted back to a node) read
// like the grammar they produce.

func Ident(name string) *Node { return &Node{Kind: Identifier, Name: name} }

func String(s string) *Node { return &Node{Kind: StringLiteral, Str: s} }

func Number(n float64) *Node { return &Node{Kind: NumericLiteral, Num: n} }

func Boolean(b bool) *Node { return &Node{Kind: BooleanLiteral, Bool: b} }

func Null() *Node { return &Node{Kind: NullLiteral} }

func Undefined() *Node { return &Node{Kind: UndefinedLiteral} }

func RawText(src string) *Node { return &Node{Kind: Raw, Str: src} }

func Array(elements ...*Node) *Node {
	return &Node{Kind: ArrayLiteral, Elements: elements}
}

func Object(props ...*Node) *Node {
	return &Node{Kind: ObjectLiteral, Properties: props}
}

func Prop(key string, value *Node) *Node {
	return &Node{Kind: Property, Name: key, Value: value}
}

func Call(callee *Node, args ...*Node) *Node {
	return &Node{Kind: CallExpr, Callee: callee, Arguments: args}
}

func Member(object *Node, name string) *Node {
	return &Node{Kind: MemberExpr, Object: object, Name: name}
}
