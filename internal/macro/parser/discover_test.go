// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscover_DeclarationWithArrowFunctionTypeAnnotationBindsMacroCall(t *testing.T) {
	src := `const f: () => Config = cfg$();`
	f, err := Discover(src)
	require.NoError(t, err)

	require.Len(t, f.Declarations, 1)
	decl := f.Declarations[0]
	require.Equal(t, "f", decl.Name)
	require.NotNil(t, decl.Call)
	require.Equal(t, "cfg$", decl.Call.Callee)
}

func TestDiscover_DeclarationWithPlainTypeAnnotationBindsMacroCall(t *testing.T) {
	src := `const count: number = total$();`
	f, err := Discover(src)
	require.NoError(t, err)

	require.Len(t, f.Declarations, 1)
	decl := f.Declarations[0]
	require.Equal(t, "count", decl.Name)
	require.NotNil(t, decl.Call)
	require.Equal(t, "total$", decl.Call.Callee)
}

func TestDiscover_DeclarationWithNoInitializerIsSkipped(t *testing.T) {
	src := `let x: string;`
	f, err := Discover(src)
	require.NoError(t, err)
	require.Empty(t, f.Declarations)
}

func TestDiscover_ComparisonIsNotMistakenForAssignment(t *testing.T) {
	src := `if (a == b) { const y = 1; }`
	f, err := Discover(src)
	require.NoError(t, err)

	require.Len(t, f.Declarations, 1)
	require.Equal(t, "y", f.Declarations[0].Name)
}
