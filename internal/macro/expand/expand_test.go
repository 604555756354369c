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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pod/internal/macro/graph"
	"pod/internal/macro/host"
	"pod/pkg/store"
)

type memLoader map[string]string

func (l memLoader) Load(specifier string) (string, error) {
	src, ok := l[specifier]
	if !ok {
		return "", fmt.Errorf("no such module %q", specifier)
	}
	return src, nil
}

func memReader(files map[string]string) Reader {
	return func(path string) ([]byte, error) {
		src, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file %q", path)
		}
		return []byte(src), nil
	}
}

func newTestExpander(loader memLoader, files map[string]string) *Expander {
	rt := host.New(loader, time.Second)
	e := New("/proj", rt, store.New(), nil)
	if files != nil {
		e.Read = memReader(files)
	}
	return e
}

func TestExpand_TrivialMacro(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function double$(n) { return n * 2; }`,
	}, nil)

	src := `import { double$ } from "./macros";
const x = double$(21);
`
	out, err := e.Expand(src, "/proj/app.ts")
	require.NoError(t, err)
	require.Contains(t, out, "const x = 42;")
	require.Contains(t, out, `import { double$ } from "./macros";`)
}

func TestExpand_TransitiveMacro(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function inc$(n) { return n + 1; }
function double$(n) { return n * 2; }`,
	}, map[string]string{
		"/proj/shared.ts": `import { inc$ } from "./macros";
export const BASE = inc$(41);
`,
	})

	src := `import { BASE } from "./shared";
import { double$ } from "./macros";
const z = double$(BASE);
`
	out, err := e.Expand(src, "/proj/app.ts")
	require.NoError(t, err)
	require.Contains(t, out, "const z = 84;")
}

func TestExpand_PackageImportRejected(t *testing.T) {
	e := newTestExpander(memLoader{}, nil)

	src := `import { double$ } from "somepkg";
const x = double$(21);
`
	_, err := e.Expand(src, "/proj/app.ts")
	require.Error(t, err)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestExpand_CycleDetected(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function identity$(n) { return n; }`,
	}, nil)

	src := `import { identity$ } from "./macros";
const a = identity$(b);
const b = identity$(a);
`
	_, err := e.Expand(src, "/proj/app.ts")
	require.Error(t, err)
	var cycleErr *graph.CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
	require.Contains(t, cycleErr.Cycle, graph.CreateKey("/proj/app.ts", "a"))
	require.Contains(t, cycleErr.Cycle, graph.CreateKey("/proj/app.ts", "b"))
}

func TestExpand_CycleDetectedThroughPlainConstReferences(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function identity$(n) { return n; }`,
	}, nil)

	// a and b are mutually recursive plain consts, never themselves bound to
	// a macro call — only reachable as an argument to one.
	src := `import { identity$ } from "./macros";
const a = b;
const b = a;
const c = identity$(a);
`
	_, err := e.Expand(src, "/proj/app.ts")
	require.Error(t, err)
	var cycleErr *graph.CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
	require.Contains(t, cycleErr.Cycle, graph.CreateKey("/proj/app.ts", "a"))
	require.Contains(t, cycleErr.Cycle, graph.CreateKey("/proj/app.ts", "b"))
}

func TestExpand_InlineCallFailureIsRecoverable(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function double$(n) { return n * 2; }`,
	}, nil)

	// missing$ is never imported, so resolving it fails. Because the call is
	// inline (not bound to a variable), that failure must not abort
	// expansion of the rest of the file.
	src := `import { double$ } from "./macros";
const a = double$(2);
missing$(1);
`
	out, err := e.Expand(src, "/proj/app.ts")
	require.NoError(t, err)
	require.Contains(t, out, "const a = 4;")
	require.Contains(t, out, "missing$(1);")
}

func TestExpand_BoundCallFailureIsFatal(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function double$(n) { return n * 2; }`,
	}, nil)

	src := `import { double$ } from "./macros";
const a = missing$(1);
`
	_, err := e.Expand(src, "/proj/app.ts")
	require.Error(t, err)
}

func TestExpand_NoMacroCallsReturnsSourceUnchanged(t *testing.T) {
	e := newTestExpander(memLoader{}, nil)
	src := "const x = 1 + 1;\n"
	out, err := e.Expand(src, "/proj/app.ts")
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestExpand_ObjectAndArrayArguments(t *testing.T) {
	e := newTestExpander(memLoader{
		"/proj/macros.ts": `function describe$(obj) { return obj.name + ":" + obj.tags.length; }`,
	}, nil)

	src := `import { describe$ } from "./macros";
const label = describe$({ name: "svc", tags: ["a", "b"] });
`
	out, err := e.Expand(src, "/proj/app.ts")
	require.NoError(t, err)
	require.Contains(t, out, `const label = "svc:2";`)
}
