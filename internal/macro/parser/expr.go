// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package parser builds internal/macro/ast trees from source text: a
// restricted recursive-descent expression parser for macro-call arguments
// and macro return values, plus a file-level discovery scan for import
// statements, top-level and nested const/let/var declarations, macro call
// sites, and directive markers.
package parser

import (
	"fmt"

	"pod/internal/macro/ast"
	"pod/internal/macro/lexer"
)

// ParseExpr parses a single expression from src and requires the entire
// string to be consumed (trailing tokens are an error — callers pass
// exactly one argument's or one interpolation's source text).
func ParseExpr(src string) (*ast.Node, error) {
	p := &exprParser{lex: lexer.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.EOF {
		return nil, fmt.Errorf("parser: unexpected trailing token %q at offset %d", p.tok.Text, p.tok.Pos)
	}
	return node, nil
}

// ParseArgList parses a comma-separated argument list from src, which must
// be the raw text between (exclusive of) a call expression's parentheses.
// Supports spread arguments (...expr).
func ParseArgList(src string) ([]*ast.Node, error) {
	p := &exprParser{lex: lexer.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []*ast.Node
	for p.tok.Kind != lexer.EOF {
		if p.tok.Kind == lexer.Punct && p.tok.Text == "..." {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.Node{Kind: ast.SpreadElement, Argument: arg})
		} else {
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.tok.Kind == lexer.Punct && p.tok.Text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.Kind != lexer.EOF {
		return nil, fmt.Errorf("parser: unexpected trailing token %q at offset %d", p.tok.Text, p.tok.Pos)
	}
	return args, nil
}

type exprParser struct {
	lex *lexer.Lexer
	tok lexer.Token
}

func (p *exprParser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *exprParser) expectPunct(text string) error {
	if p.tok.Kind != lexer.Punct || p.tok.Text != text {
		return fmt.Errorf("parser: expected %q, got %q at offset %d", text, p.tok.Text, p.tok.Pos)
	}
	return p.advance()
}

func (p *exprParser) parseConditional() (*ast.Node, error) {
	test, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.Punct && p.tok.Text == "?" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cons, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		alt, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.ConditionalExpr, Test: test, Consequent: cons, Alternate: alt}, nil
	}
	return test, nil
}

func (p *exprParser) binaryLevel(next func() (*ast.Node, error), kind ast.Kind, ops ...string) (*ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.Punct && containsOp(ops, p.tok.Text) {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.Node{Kind: kind, Name: op, Left: left, Right: right}
	}
	return left, nil
}

func containsOp(ops []string, s string) bool {
	for _, o := range ops {
		if o == s {
			return true
		}
	}
	return false
}

func (p *exprParser) parseLogicalOr() (*ast.Node, error) {
	return p.binaryLevel(p.parseLogicalAnd, ast.LogicalExpr, "||", "??")
}

func (p *exprParser) parseLogicalAnd() (*ast.Node, error) {
	return p.binaryLevel(p.parseEquality, ast.LogicalExpr, "&&")
}

func (p *exprParser) parseEquality() (*ast.Node, error) {
	return p.binaryLevel(p.parseRelational, ast.BinaryExpr, "===", "!==", "==", "!=")
}

func (p *exprParser) parseRelational() (*ast.Node, error) {
	return p.binaryLevel(p.parseAdditive, ast.BinaryExpr, "<=", ">=", "<", ">")
}

func (p *exprParser) parseAdditive() (*ast.Node, error) {
	return p.binaryLevel(p.parseMultiplicative, ast.BinaryExpr, "+", "-")
}

func (p *exprParser) parseMultiplicative() (*ast.Node, error) {
	return p.binaryLevel(p.parseExponent, ast.BinaryExpr, "*", "/", "%")
}

// parseExponent is right-associative, per conventional ECMA semantics.
func (p *exprParser) parseExponent() (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.Punct && p.tok.Text == "**" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.BinaryExpr, Name: "**", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *exprParser) parseUnary() (*ast.Node, error) {
	if p.tok.Kind == lexer.Punct && (p.tok.Text == "!" || p.tok.Text == "-" || p.tok.Text == "+") {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.UnaryExpr, Name: op, Argument: arg, Prefix: true}, nil
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() (*ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.tok.Kind == lexer.Punct && p.tok.Text == ".":
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind != lexer.Ident && p.tok.Kind != lexer.Keyword {
				return nil, fmt.Errorf("parser: expected property name after '.' at offset %d", p.tok.Pos)
			}
			name := p.tok.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			node = &ast.Node{Kind: ast.MemberExpr, Object: node, Name: name}
		case p.tok.Kind == lexer.Punct && p.tok.Text == "[":
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			node = &ast.Node{Kind: ast.MemberExpr, Object: node, Computed: true, PropertyExpr: idx}
		case p.tok.Kind == lexer.Punct && p.tok.Text == "(":
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			node = &ast.Node{Kind: ast.CallExpr, Callee: node, Arguments: args}
		default:
			return node, nil
		}
	}
}

func (p *exprParser) parseCallArgs() ([]*ast.Node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []*ast.Node
	for !(p.tok.Kind == lexer.Punct && p.tok.Text == ")") {
		if p.tok.Kind == lexer.Punct && p.tok.Text == "..." {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.Node{Kind: ast.SpreadElement, Argument: arg})
		} else {
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.tok.Kind == lexer.Punct && p.tok.Text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *exprParser) parsePrimary() (*ast.Node, error) {
	tok := p.tok
	switch {
	case tok.Kind == lexer.String:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.String(tok.Text), nil

	case tok.Kind == lexer.Number:
		n, err := lexer.ParseNumber(tok.Text)
		if err != nil {
			return nil, fmt.Errorf("parser: invalid number %q at offset %d: %w", tok.Text, tok.Pos, err)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Number(n), nil

	case tok.Kind == lexer.Template:
		exprs := make([]*ast.Node, 0, len(tok.Exprs))
		for _, src := range tok.Exprs {
			n, err := ParseExpr(src)
			if err != nil {
				return nil, fmt.Errorf("parser: template interpolation: %w", err)
			}
			exprs = append(exprs, n)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.TemplateLiteral, Quasis: tok.Quasis, Exprs: exprs}, nil

	case tok.Kind == lexer.Keyword && tok.Text == "true":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Boolean(true), nil

	case tok.Kind == lexer.Keyword && tok.Text == "false":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Boolean(false), nil

	case tok.Kind == lexer.Keyword && tok.Text == "null":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Null(), nil

	case tok.Kind == lexer.Keyword && tok.Text == "undefined":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Undefined(), nil

	case tok.Kind == lexer.Ident || tok.Kind == lexer.Keyword:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Ident(tok.Text), nil

	case tok.Kind == lexer.Punct && tok.Text == "(":
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil

	case tok.Kind == lexer.Punct && tok.Text == "[":
		return p.parseArrayLiteral()

	case tok.Kind == lexer.Punct && tok.Text == "{":
		return p.parseObjectLiteral()

	default:
		return nil, fmt.Errorf("parser: unexpected token %q at offset %d", tok.Text, tok.Pos)
	}
}

func (p *exprParser) parseArrayLiteral() (*ast.Node, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	var elements []*ast.Node
	for !(p.tok.Kind == lexer.Punct && p.tok.Text == "]") {
		if p.tok.Kind == lexer.Punct && p.tok.Text == "..." {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			elements = append(elements, &ast.Node{Kind: ast.SpreadElement, Argument: arg})
		} else {
			el, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
		}
		if p.tok.Kind == lexer.Punct && p.tok.Text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return ast.Array(elements...), nil
}

func (p *exprParser) parseObjectLiteral() (*ast.Node, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var props []*ast.Node
	for !(p.tok.Kind == lexer.Punct && p.tok.Text == "}") {
		if p.tok.Kind == lexer.Punct && p.tok.Text == "..." {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			props = append(props, &ast.Node{Kind: ast.Property, Spread: true, Value: arg})
		} else if p.tok.Kind == lexer.Punct && p.tok.Text == "[" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			keyExpr, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			val, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			props = append(props, &ast.Node{Kind: ast.Property, Computed: true, KeyExpr: keyExpr, Value: val})
		} else {
			if p.tok.Kind != lexer.Ident && p.tok.Kind != lexer.Keyword && p.tok.Kind != lexer.String {
				return nil, fmt.Errorf("parser: expected property key at offset %d", p.tok.Pos)
			}
			key := p.tok.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == lexer.Punct && p.tok.Text == ":" {
				if err := p.advance(); err != nil {
					return nil, err
				}
				val, err := p.parseConditional()
				if err != nil {
					return nil, err
				}
				props = append(props, &ast.Node{Kind: ast.Property, Name: key, Value: val})
			} else {
				// Shorthand property: { x } === { x: x }.
				props = append(props, &ast.Node{Kind: ast.Property, Name: key, Value: ast.Ident(key), Shorthand: true})
			}
		}
		if p.tok.Kind == lexer.Punct && p.tok.Text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return ast.Object(props...), nil
}
