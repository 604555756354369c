// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package deploy

import (
	"context"
	"fmt"
	"strings"
)

// Plan previews what a deploy would do against a target: the orchestrator
// runs with DryRun set, so no ensure script runs, no action applies, no
// verify executes, and the lock file is never written back.
type Plan struct {
	Target  string
	Results []Result
}

func (p Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "target %s:\n", p.Target)
	for _, r := range p.Results {
		fmt.Fprintf(&b, "  %-14s %-8s %s\n", r.Action, r.Kind, r.Name)
	}
	return b.String()
}

// Dirty reports whether applying this plan for real would change anything.
func (p Plan) Dirty() bool {
	for _, r := range p.Results {
		if r.Action != "skipped" {
			return true
		}
	}
	return false
}

// BuildPlan runs the orchestrator in DryRun mode and returns the preview.
func BuildPlan(ctx context.Context, o *Orchestrator) (Plan, error) {
	o.DryRun = true
	results, err := o.Run(ctx)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Target: o.TargetName, Results: results}, nil
}
