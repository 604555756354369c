// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package parser

import (
	"fmt"
	"strings"

	"pod/internal/macro/ast"
	"pod/internal/macro/lexer"
)

// Binding is one name introduced by an import statement: `import Local as
// ... from Specifier` in the general case, with Imported holding the
// exported name on the other side ("default" for a default import, "*" for a
// namespace import).
type Binding struct {
	Local       string
	Imported    string
	IsDefault   bool
	IsNamespace bool
}

// Import is one `import ... from "specifier"` statement (or a bare
// side-effect `import "specifier"` with no Bindings).
type Import struct {
	Specifier string
	Bindings  []Binding
	Start, End int
}

// Declaration is one `const|let|var NAME = <init>` binding found anywhere in
// the file (top level or nested inside a block). If Init is a direct macro
// call (`name$(...)`), Call is non-nil and this is a "bound" site.
type Declaration struct {
	Keyword        string // "const", "let", or "var"
	Name           string
	InitStart, InitEnd int
	Init           string
	Call           *MacroCall
}

// MacroCall is one direct call to an identifier ending in `$`, wherever it
// occurs in the source. Bound is the name of the Declaration it's the
// initializer of, or "" if it's an inline call — inline calls are rewritten
// in place; bound calls are rewritten via their site's stored result.
type MacroCall struct {
	Callee               string
	Start, End           int // full call span, callee through closing ')'
	ArgsStart, ArgsEnd   int // span between (exclusive of) the parens
	Args                 []*ast.Node
	Bound                string
}

// File is the result of a discovery scan: call-site discovery plus the
// bookkeeping binding resolution and directive detection need.
type File struct {
	Directive    string // "", "use public", or "use interactive"
	Imports      []Import
	Declarations []Declaration
	Calls        []MacroCall // includes both bound and inline calls
}

// Discover scans src once for its leading directive, its import statements,
// every const/let/var declaration (at any nesting depth), and every direct
// call to a `$`-suffixed identifier. It does not build a full statement or
// expression tree for the surrounding source — per the package's
// byte-span-splicing design, everything outside these spans is left for the
// expander to copy through verbatim.
func Discover(src string) (*File, error) {
	f := &File{Directive: discoverDirective(src)}

	masked := string(blank(src))

	imports, err := discoverImports(src, masked)
	if err != nil {
		return nil, err
	}
	f.Imports = imports

	decls, err := discoverDeclarations(src, masked)
	if err != nil {
		return nil, err
	}

	calls, err := discoverCalls(src, masked)
	if err != nil {
		return nil, err
	}

	// Link each declaration whose initializer span exactly matches a
	// discovered call to that call, marking it "bound"; everything else is
	// an inline call — a direct call not bound to a variable.
	byStart := make(map[int]int, len(calls)) // call.Start -> index into calls
	for i, c := range calls {
		byStart[c.Start] = i
	}
	for di := range decls {
		d := &decls[di]
		trimmedStart, trimmedEnd := trimSpan(src, d.InitStart, d.InitEnd)
		if ci, ok := byStart[trimmedStart]; ok && calls[ci].End == trimmedEnd {
			calls[ci].Bound = d.Name
			d.Call = &calls[ci]
		}
	}

	f.Declarations = decls
	f.Calls = calls
	return f, nil
}

// discoverDirective probes only the very first token: a file MAY begin with
// exactly one of two string-literal expression statements, and the first
// non-string-literal statement terminates the directive scan — so anything
// other than an exact match at position zero means there is no directive,
// including a lexer error on whatever TS/JSX syntax the rest of the file
// contains.
func discoverDirective(src string) string {
	lx := lexer.New(src)
	tok, err := lx.Next()
	if err != nil || tok.Kind != lexer.String {
		return ""
	}
	if tok.Text != "use public" && tok.Text != "use interactive" {
		return ""
	}
	return tok.Text
}

func isIdentPartByte(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// findKeyword finds the next whole-word occurrence of kw in masked at or
// after from.
func findKeyword(masked, kw string, from int) int {
	for from <= len(masked) {
		idx := strings.Index(masked[from:], kw)
		if idx < 0 {
			return -1
		}
		pos := from + idx
		var before, after byte
		if pos > 0 {
			before = masked[pos-1]
		}
		if end := pos + len(kw); end < len(masked) {
			after = masked[end]
		}
		if !isIdentPartByte(before) && !isIdentPartByte(after) {
			return pos
		}
		from = pos + 1
	}
	return -1
}

// findMatchingParen returns the offset of the ')' matching the '(' at
// openPos, tracking nested parens. Assumes masked[openPos] == '('.
func findMatchingParen(masked string, openPos int) int {
	depth := 0
	for i := openPos; i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// findStatementEnd returns the offset of the ';' that ends the statement
// starting at from, tracking paren/bracket/brace nesting so a ';' inside a
// nested call or object literal isn't mistaken for the end. If the
// enclosing block closes first (no terminating ';', e.g. the last statement
// in a function body), returns that '}' position. Falls back to len(masked).
func findStatementEnd(masked string, from int) int {
	depth := 0
	for i := from; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		case ';':
			if depth == 0 {
				return i
			}
		}
	}
	return len(masked)
}

func trimSpan(src string, start, end int) (int, int) {
	for start < end && isSpace(src[start]) {
		start++
	}
	for end > start && isSpace(src[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// discoverCalls finds every direct call to a `$`-suffixed identifier,
// wherever it appears in the source.
func discoverCalls(src, masked string) ([]MacroCall, error) {
	var calls []MacroCall
	for i := 0; i < len(masked); i++ {
		if masked[i] != '(' {
			continue
		}
		j := i
		for j > 0 && isIdentPartByte(masked[j-1]) {
			j--
		}
		if j == i || !isIdentStartByte(masked[j]) {
			continue
		}
		name := masked[j:i]
		if !strings.HasSuffix(name, "$") {
			continue
		}
		closePos := findMatchingParen(masked, i)
		if closePos < 0 {
			return nil, fmt.Errorf("discover: unterminated call to %q starting at offset %d", name, j)
		}
		argsStart, argsEnd := trimSpan(src, i+1, closePos)
		var args []*ast.Node
		if argsEnd > argsStart {
			parsed, err := ParseArgList(src[argsStart:argsEnd])
			if err != nil {
				return nil, fmt.Errorf("discover: parsing arguments to %q at offset %d: %w", name, j, err)
			}
			args = parsed
		}
		calls = append(calls, MacroCall{
			Callee:    name,
			Start:     j,
			End:       closePos + 1,
			ArgsStart: argsStart,
			ArgsEnd:   argsEnd,
			Args:      args,
		})
	}
	return calls, nil
}

// discoverDeclarations finds every `const|let|var NAME = <init>` binding
// at any nesting depth. Destructuring patterns (`const { a } = ...` or
// `const [a] = ...`) are skipped: no macro call can be bound through one,
// since a site is keyed by a single declaring identifier.
func discoverDeclarations(src, masked string) ([]Declaration, error) {
	var decls []Declaration
	for _, kw := range []string{"const", "let", "var"} {
		from := 0
		for {
			pos := findKeyword(masked, kw, from)
			if pos < 0 {
				break
			}
			from = pos + len(kw)

			i := pos + len(kw)
			for i < len(masked) && isSpace(masked[i]) {
				i++
			}
			if i >= len(masked) || !isIdentStartByte(masked[i]) {
				continue
			}
			nameStart := i
			for i < len(masked) && isIdentPartByte(masked[i]) {
				i++
			}
			name := masked[nameStart:i]

			for i < len(masked) && isSpace(masked[i]) {
				i++
			}
			if i >= len(masked) {
				continue
			}

			// Optional type annotation: skip past it to find the real
			// assignment '='. An arrow-function type (`: () => T`) or a
			// comparison-shaped type alias contains its own '=' as part of
			// '=>' or '==', which isn't the declaration's assignment — skip
			// those as a pair instead of stopping on them.
			if masked[i] == ':' {
				for i < len(masked) && masked[i] != ';' {
					if masked[i] == '=' {
						if i+1 < len(masked) && (masked[i+1] == '>' || masked[i+1] == '=') {
							i += 2
							continue
						}
						break
					}
					i++
				}
			}
			if i >= len(masked) || masked[i] != '=' {
				continue // declaration with no initializer
			}
			// Reject '==', '===', '=>' — not an assignment.
			if i+1 < len(masked) && (masked[i+1] == '=' || masked[i+1] == '>') {
				continue
			}

			initStart := i + 1
			for initStart < len(masked) && isSpace(masked[initStart]) {
				initStart++
			}
			initEnd := findStatementEnd(masked, initStart)
			ts, te := trimSpan(src, initStart, initEnd)

			decls = append(decls, Declaration{
				Keyword:   kw,
				Name:      name,
				InitStart: ts,
				InitEnd:   te,
				Init:      src[ts:te],
			})
		}
	}
	return decls, nil
}

// discoverImports finds every top-level import statement and parses its
// binding clause with a small dedicated token walk (import clauses are not
// part of the macro expression grammar internal/macro/parser/expr.go
// builds trees for).
func discoverImports(src, masked string) ([]Import, error) {
	var imports []Import
	from := 0
	for {
		pos := findKeyword(masked, "import", from)
		if pos < 0 {
			break
		}
		end := findStatementEnd(masked, pos)
		stmtEnd := end
		if stmtEnd < len(masked) && masked[stmtEnd] == ';' {
			stmtEnd++
		}
		from = stmtEnd

		imp, err := parseImportClause(src[pos:end])
		if err != nil {
			return nil, fmt.Errorf("discover: parsing import at offset %d: %w", pos, err)
		}
		imp.Start = pos
		imp.End = end
		imports = append(imports, *imp)
	}
	return imports, nil
}

func parseImportClause(text string) (*Import, error) {
	lx := lexer.New(text)
	next := func() (lexer.Token, error) { return lx.Next() }

	tok, err := next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != lexer.Keyword || tok.Text != "import" {
		return nil, fmt.Errorf("expected 'import', got %q", tok.Text)
	}

	tok, err = next()
	if err != nil {
		return nil, err
	}

	imp := &Import{}

	// Bare side-effect import: `import "specifier"`.
	if tok.Kind == lexer.String {
		imp.Specifier = tok.Text
		return imp, nil
	}

	for {
		switch {
		case tok.Kind == lexer.Ident || (tok.Kind == lexer.Keyword && tok.Text == "default"):
			// Default import binding.
			imp.Bindings = append(imp.Bindings, Binding{Local: tok.Text, Imported: "default", IsDefault: true})
			tok, err = next()
			if err != nil {
				return nil, err
			}
			if tok.Kind == lexer.Punct && tok.Text == "," {
				tok, err = next()
				if err != nil {
					return nil, err
				}
				continue
			}

		case tok.Kind == lexer.Punct && tok.Text == "*":
			tok, err = next()
			if err != nil {
				return nil, err
			}
			if tok.Kind != lexer.Keyword || tok.Text != "as" {
				return nil, fmt.Errorf("expected 'as' after '*' in import, got %q", tok.Text)
			}
			tok, err = next()
			if err != nil {
				return nil, err
			}
			if tok.Kind != lexer.Ident {
				return nil, fmt.Errorf("expected identifier after 'as', got %q", tok.Text)
			}
			imp.Bindings = append(imp.Bindings, Binding{Local: tok.Text, Imported: "*", IsNamespace: true})
			tok, err = next()
			if err != nil {
				return nil, err
			}

		case tok.Kind == lexer.Punct && tok.Text == "{":
			for {
				tok, err = next()
				if err != nil {
					return nil, err
				}
				if tok.Kind == lexer.Punct && tok.Text == "}" {
					break
				}
				if tok.Kind != lexer.Ident && tok.Kind != lexer.Keyword {
					return nil, fmt.Errorf("expected imported name, got %q", tok.Text)
				}
				importedName := tok.Text
				localName := importedName
				tok, err = next()
				if err != nil {
					return nil, err
				}
				if tok.Kind == lexer.Keyword && tok.Text == "as" {
					tok, err = next()
					if err != nil {
						return nil, err
					}
					if tok.Kind != lexer.Ident {
						return nil, fmt.Errorf("expected identifier after 'as', got %q", tok.Text)
					}
					localName = tok.Text
					tok, err = next()
					if err != nil {
						return nil, err
					}
				}
				imp.Bindings = append(imp.Bindings, Binding{Local: localName, Imported: importedName})
				if tok.Kind == lexer.Punct && tok.Text == "," {
					continue
				}
				if tok.Kind == lexer.Punct && tok.Text == "}" {
					break
				}
				return nil, fmt.Errorf("expected ',' or '}' in import clause, got %q", tok.Text)
			}
			tok, err = next()
			if err != nil {
				return nil, err
			}

		case tok.Kind == lexer.Keyword && tok.Text == "from":
			tok, err = next()
			if err != nil {
				return nil, err
			}
			if tok.Kind != lexer.String {
				return nil, fmt.Errorf("expected specifier string after 'from', got %q", tok.Text)
			}
			imp.Specifier = tok.Text
			return imp, nil

		default:
			return nil, fmt.Errorf("unexpected token %q in import clause", tok.Text)
		}
	}
}
