// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package lexer tokenizes the restricted subset of TypeScript-family source
// the macro expander needs to understand: enough to find statement
// boundaries (imports, const/let/var declarations, braces) during
// discovery, and enough to tokenize the macro-argument/return-value
// expression grammar that internal/macro/parser builds an AST from. It is
// not a general TS/JSX lexer — everything outside these two uses is
// spliced back as verbatim bytes by the expander, never re-lexed.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	String
	Number
	Template
	Punct
)

// Token is a single lexical unit. Pos is the byte offset of its first
// character in the source the Lexer was constructed with.
type Token struct {
	Kind Kind
	Text string // raw text for Ident/Keyword/Punct; decoded value for String
	Pos  int
	End  int

	// Template-only: Quasis[i] is the literal text before Exprs[i];
	// len(Quasis) == len(Exprs)+1.
	Quasis []string
	Exprs  []string
}

var keywords = map[string]bool{
	"import": true, "export": true, "from": true, "default": true,
	"const": true, "let": true, "var": true,
	"true": true, "false": true, "null": true, "undefined": true,
	"function": true, "return": true, "as": true,
}

// Lexer scans a source string into Tokens on demand.
type Lexer struct {
	src string
	pos int
}

func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

// SetPos repositions the lexer (used when the parser backtracks to a known
// statement boundary found during a prior scanning pass).
func (l *Lexer) SetPos(p int) { l.pos = p }

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		if c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		if c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*' {
			l.pos += 2
			for l.pos+1 < len(l.src) && !(l.src[l.pos] == '*' && l.src[l.pos+1] == '/') {
				l.pos++
			}
			l.pos += 2
			if l.pos > len(l.src) {
				l.pos = len(l.src)
			}
			continue
		}
		break
	}
}

// Next returns the next token and advances past it.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Pos: start, End: start}, nil
	}

	c := l.src[l.pos]

	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		kind := Ident
		if keywords[text] {
			kind = Keyword
		}
		return Token{Kind: kind, Text: text, Pos: start, End: l.pos}, nil

	case isDigit(c):
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.' || l.src[l.pos] == '_') {
			l.pos++
		}
		text := strings.ReplaceAll(l.src[start:l.pos], "_", "")
		return Token{Kind: Number, Text: text, Pos: start, End: l.pos}, nil

	case c == '"' || c == '\'':
		val, end, err := scanString(l.src, l.pos)
		if err != nil {
			return Token{}, err
		}
		l.pos = end
		return Token{Kind: String, Text: val, Pos: start, End: end}, nil

	case c == '`':
		tok, end, err := l.scanTemplate(l.pos)
		if err != nil {
			return Token{}, err
		}
		l.pos = end
		tok.Pos = start
		tok.End = end
		return tok, nil

	default:
		punct, end := scanPunct(l.src, l.pos)
		if punct == "" {
			return Token{}, fmt.Errorf("lexer: unexpected byte %q at offset %d", c, l.pos)
		}
		l.pos = end
		return Token{Kind: Punct, Text: punct, Pos: start, End: end}, nil
	}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	save := l.pos
	tok, err := l.Next()
	l.pos = save
	return tok, err
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// scanString decodes a single- or double-quoted string literal starting at
// pos (which must point at the opening quote). Returns the decoded value
// and the offset just past the closing quote.
func scanString(src string, pos int) (string, int, error) {
	quote := src[pos]
	i := pos + 1
	var sb strings.Builder
	for i < len(src) {
		c := src[i]
		if c == quote {
			return sb.String(), i + 1, nil
		}
		if c == '\\' && i+1 < len(src) {
			esc := src[i+1]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '\'':
				sb.WriteByte('\'')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte(esc)
			}
			i += 2
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return "", i, fmt.Errorf("lexer: unterminated string starting at offset %d", pos)
}

// scanTemplate scans a template literal starting at pos (pointing at the
// opening backtick), splitting it into literal quasis and the raw source
// text of each ${...} interpolation (not yet parsed — the parser recurses
// into each with a fresh Lexer).
func (l *Lexer) scanTemplate(pos int) (Token, int, error) {
	src := l.src
	i := pos + 1
	var quasis []string
	var exprs []string
	var cur strings.Builder

	for i < len(src) {
		c := src[i]
		if c == '`' {
			quasis = append(quasis, cur.String())
			return Token{Kind: Template, Quasis: quasis, Exprs: exprs}, i + 1, nil
		}
		if c == '\\' && i+1 < len(src) {
			cur.WriteByte(src[i])
			cur.WriteByte(src[i+1])
			i += 2
			continue
		}
		if c == '$' && i+1 < len(src) && src[i+1] == '{' {
			quasis = append(quasis, cur.String())
			cur.Reset()
			start := i + 2
			end, err := l.scanInterpolationEnd(start)
			if err != nil {
				return Token{}, i, err
			}
			exprs = append(exprs, src[start:end])
			i = end + 1
			continue
		}
		cur.WriteByte(c)
		i++
	}
	return Token{}, i, fmt.Errorf("lexer: unterminated template literal starting at offset %d", pos)
}

// scanInterpolationEnd finds the byte offset of the `}` that closes a
// `${...}` interpolation starting at start (just past the `${`), skipping
// over nested braces, string literals, and template literals so a `}`
// inside one of those isn't mistaken for the interpolation's own close.
func (l *Lexer) scanInterpolationEnd(start int) (int, error) {
	src := l.src
	depth := 0
	i := start
	for i < len(src) {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			_, end, err := scanString(src, i)
			if err != nil {
				return 0, err
			}
			i = end
		case c == '`':
			_, end, err := l.scanTemplate(i)
			if err != nil {
				return 0, err
			}
			i = end
		case c == '{':
			depth++
			i++
		case c == '}':
			if depth == 0 {
				return i, nil
			}
			depth--
			i++
		default:
			i++
		}
	}
	return 0, fmt.Errorf("lexer: unterminated template interpolation at offset %d", start)
}

var multiCharPuncts = []string{
	"...", "===", "!==", "**", "==", "!=", "<=", ">=", "&&", "||", "??", "=>",
}

func scanPunct(src string, pos int) (string, int) {
	for _, p := range multiCharPuncts {
		if strings.HasPrefix(src[pos:], p) {
			return p, pos + len(p)
		}
	}
	switch src[pos] {
	case '(', ')', '{', '}', '[', ']', ',', '.', '?', ':', ';', '=', '+', '-', '*', '/', '%', '<', '>', '!', '&', '|':
		return string(src[pos]), pos + 1
	}
	return "", pos
}

// ParseNumber converts a lexed numeric token's text to float64.
func ParseNumber(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
