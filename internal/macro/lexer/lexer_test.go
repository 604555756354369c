// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanTemplate_InterpolationSpansWholeExpression(t *testing.T) {
	l := New("`${a + b}`")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Template, tok.Kind)
	require.Equal(t, []string{"a + b"}, tok.Exprs)
	require.Equal(t, []string{"", ""}, tok.Quasis)
}

func TestScanTemplate_InterpolationWithNestedStringContainingBrace(t *testing.T) {
	// A `}` inside a quoted string argument must not be mistaken for the
	// interpolation's own closing brace.
	l := New("`${bar.get(\"}\")}`")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Template, tok.Kind)
	require.Equal(t, []string{`bar.get("}")`}, tok.Exprs)
}

func TestScanTemplate_InterpolationWithNestedObjectLiteral(t *testing.T) {
	// A '{'/'}' pair from an object literal argument must nest correctly
	// rather than closing the interpolation early.
	l := New("`${f({a: 1})}`")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Template, tok.Kind)
	require.Equal(t, []string{"f({a: 1})"}, tok.Exprs)
}

func TestScanTemplate_InterpolationWithNestedTemplate(t *testing.T) {
	l := New("`${`x${1}y`}`")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Template, tok.Kind)
	require.Equal(t, []string{"`x${1}y`"}, tok.Exprs)
}

func TestScanTemplate_UnterminatedInterpolationErrors(t *testing.T) {
	l := New("`${a")
	_, err := l.Next()
	require.Error(t, err)
}
