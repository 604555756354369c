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
	"strconv"
	"strings"
)

// Print renders a Node back to source text. It is the inverse of the
// expression parser and is used by Phase 5 (Rewrite) to splice a macro's
// result back into the surrounding, otherwise-untouched source bytes.
func Print(n *Node) string {
	var sb strings.Builder
	print1(&sb, n)
	return sb.String()
}

func print1(sb *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case Raw:
		sb.WriteString(n.Str)
	case Identifier:
		sb.WriteString(n.Name)
	case StringLiteral:
		sb.WriteString(strconv.Quote(n.Str))
	case NumericLiteral:
		sb.WriteString(formatNumber(n.Num))
	case BooleanLiteral:
		if n.Bool {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case NullLiteral:
		sb.WriteString("null")
	case UndefinedLiteral:
		sb.WriteString("undefined")
	case TemplateLiteral:
		sb.WriteString("`")
		for i, q := range n.Quasis {
			sb.WriteString(q)
			if i < len(n.Exprs) {
				sb.WriteString("${")
				print1(sb, n.Exprs[i])
				sb.WriteString("}")
			}
		}
		sb.WriteString("`")
	case ObjectLiteral:
		sb.WriteString("{")
		for i, p := range n.Properties {
			if i > 0 {
				sb.WriteString(", ")
			}
			print1(sb, p)
		}
		sb.WriteString("}")
	case Property:
		if n.Spread {
			sb.WriteString("...")
			print1(sb, n.Value)
			return
		}
		if n.Computed {
			sb.WriteString("[")
			print1(sb, n.KeyExpr)
			sb.WriteString("]")
		} else {
			sb.WriteString(n.Name)
		}
		if n.Shorthand {
			return
		}
		sb.WriteString(": ")
		print1(sb, n.Value)
	case ArrayLiteral:
		sb.WriteString("[")
		for i, e := range n.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			print1(sb, e)
		}
		sb.WriteString("]")
	case SpreadElement:
		sb.WriteString("...")
		print1(sb, n.Argument)
	case UnaryExpr:
		if n.Prefix {
			sb.WriteString(n.Name)
			print1(sb, n.Argument)
		} else {
			print1(sb, n.Argument)
			sb.WriteString(n.Name)
		}
	case BinaryExpr, LogicalExpr:
		print1(sb, n.Left)
		sb.WriteString(" ")
		sb.WriteString(n.Name)
		sb.WriteString(" ")
		print1(sb, n.Right)
	case ConditionalExpr:
		print1(sb, n.Test)
		sb.WriteString(" ? ")
		print1(sb, n.Consequent)
		sb.WriteString(" : ")
		print1(sb, n.Alternate)
	case MemberExpr:
		print1(sb, n.Object)
		if n.Computed {
			sb.WriteString("[")
			print1(sb, n.PropertyExpr)
			sb.WriteString("]")
		} else {
			sb.WriteString(".")
			sb.WriteString(n.Name)
		}
	case CallExpr:
		print1(sb, n.Callee)
		sb.WriteString("(")
		for i, a := range n.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			print1(sb, a)
		}
		sb.WriteString(")")
	default:
		sb.WriteString(fmt.Sprintf("/* unprintable node kind %d */", n.Kind))
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
