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
	"encoding/json"
	"fmt"
	"sync"
)

// EnsureEntry is the lock's record of one satisfied ensure operation: the
// ensure's own declared version (not the manifest's deployment version) and
// the config it was installed with, so a later run can tell by deep
// comparison whether it must reconverge.
type EnsureEntry struct {
	Version string `json:"version"`
	Config  any    `json:"config"`
}

// LockState is the durable per-target record: the manifest version last
// deployed, one entry per satisfied ensure keyed by ensure-identity, and
// the set of `once` action identifiers already run. A manifest version
// bump clears OnceActions but preserves Ensures — ensures reconverge on
// their own version/config comparison.
type LockState struct {
	DeploymentVersion string                 `json:"deployment_version"`
	Ensures           map[string]EnsureEntry `json:"ensures"`
	OnceActions       []string               `json:"once_actions"`
}

// HasOnceAction reports whether an action identifier is already recorded.
func (s *LockState) HasOnceAction(id string) bool {
	for _, a := range s.OnceActions {
		if a == id {
			return true
		}
	}
	return false
}

// AddOnceAction appends an action identifier if not already present.
func (s *LockState) AddOnceAction(id string) {
	if !s.HasOnceAction(id) {
		s.OnceActions = append(s.OnceActions, id)
	}
}

// LockStore guards one target's lock file, serializing reads and writes
// from this process. It persists through the same Strategy the orchestrator
// uses to reach the target, so an ssh target's lock lives on the target's
// own filesystem under its deployPath rather than on the machine running
// the CLI — the lock file is the only durable state a deploy shares across
// runs, so it has to live where the rest of the target's state does.
type LockStore struct {
	mu       sync.Mutex
	path     string
	strategy Strategy
}

// NewLockStore builds a LockStore that reads and writes path through
// strategy.
func NewLockStore(strategy Strategy, path string) *LockStore {
	return &LockStore{path: path, strategy: strategy}
}

// Load tolerates both a missing file and an unparseable one, treating both
// as empty — the first deploy to a target always starts from an empty
// lock, and a corrupted lock file must not itself become fatal.
func (l *LockStore) Load(ctx context.Context) (*LockState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var state LockState
	found, err := l.strategy.ReadJSON(ctx, l.path, &state)
	if err != nil {
		return nil, fmt.Errorf("deploy: reading lock file: %w", err)
	}
	if !found {
		return &LockState{Ensures: make(map[string]EnsureEntry)}, nil
	}
	if state.Ensures == nil {
		state.Ensures = make(map[string]EnsureEntry)
	}
	return &state, nil
}

// Save rewrites the lock file in full — never patched in place.
func (l *LockStore) Save(ctx context.Context, state *LockState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("deploy: encoding lock file: %w", err)
	}
	if err := l.strategy.UploadContent(ctx, l.path, data); err != nil {
		return fmt.Errorf("deploy: writing lock file: %w", err)
	}
	return nil
}
