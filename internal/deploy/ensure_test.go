// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package deploy

import "testing"

func TestEnsureSatisfied_NoEntryMeansUnsatisfied(t *testing.T) {
	op := Operation{Kind: OperationEnsure, Ensure: EnsureDocker, Name: "docker"}
	state := &LockState{Ensures: map[string]EnsureEntry{}}

	if ensureSatisfied(op, state, false) {
		t.Fatalf("expected an ensure with no lock entry to be unsatisfied")
	}
}

func TestEnsureSatisfied_MatchingVersionAndConfig(t *testing.T) {
	op := Operation{Kind: OperationEnsure, Ensure: EnsureSwap, Name: "swap", Size: "2G"}
	state := &LockState{Ensures: map[string]EnsureEntry{
		"swap": {Version: "", Config: ensureConfig(op)},
	}}

	if !ensureSatisfied(op, state, false) {
		t.Fatalf("expected matching version and config to be satisfied")
	}
}

func TestEnsureSatisfied_ConfigChangeForcesReconverge(t *testing.T) {
	op := Operation{Kind: OperationEnsure, Ensure: EnsureSwap, Name: "swap", Size: "4G"}
	state := &LockState{Ensures: map[string]EnsureEntry{
		"swap": {Version: "", Config: map[string]string{"size": "2G"}},
	}}

	if ensureSatisfied(op, state, false) {
		t.Fatalf("expected a changed config to be unsatisfied")
	}
}

func TestEnsureSatisfied_ForceInstallAlwaysUnsatisfied(t *testing.T) {
	op := Operation{Kind: OperationEnsure, Ensure: EnsureDocker, Name: "docker"}
	state := &LockState{Ensures: map[string]EnsureEntry{
		"docker": {Version: "", Config: ensureConfig(op)},
	}}

	if ensureSatisfied(op, state, true) {
		t.Fatalf("expected --force-install to bypass a satisfied ensure")
	}
}

func TestEnsureSatisfied_OwnVersionChangeForcesReconverge(t *testing.T) {
	op := Operation{Kind: OperationEnsure, Ensure: EnsureDocker, Name: "docker", Version: "24.0.0"}
	state := &LockState{Ensures: map[string]EnsureEntry{
		"docker": {Version: "23.0.0", Config: ensureConfig(op)},
	}}

	if ensureSatisfied(op, state, false) {
		t.Fatalf("expected a change to the ensure's own declared version to force reconvergence")
	}
}

func TestEnsureSatisfied_ManifestVersionBumpAloneDoesNotReconverge(t *testing.T) {
	// Test scenario 6: bumping the manifest's deployment_version must not
	// by itself re-run an ensure whose own version/config is unchanged —
	// only once-actions are reset on a version bump.
	op := Operation{Kind: OperationEnsure, Ensure: EnsureDocker, Name: "docker"}
	state := &LockState{
		DeploymentVersion: "1.1.0",
		Ensures: map[string]EnsureEntry{
			"docker": {Version: "", Config: ensureConfig(op)},
		},
	}

	if !ensureSatisfied(op, state, false) {
		t.Fatalf("expected an unchanged ensure to remain satisfied across a manifest version bump")
	}
}
