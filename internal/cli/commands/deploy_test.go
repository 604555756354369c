// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDeployCommand_HasExpectedMetadata(t *testing.T) {
	cmd := NewDeployCommand()

	if cmd.Use != "deploy <target>" {
		t.Fatalf("expected Use to be 'deploy <target>', got %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Fatalf("expected Short description to be non-empty")
	}
	if cmd.Flags().Lookup("force-install") == nil {
		t.Fatalf("expected a --force-install flag")
	}
}

func TestDeployCommand_MissingManifest(t *testing.T) {
	tmpDir := t.TempDir()
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDeployCommand())

	_, err := executeCommandForGolden(root, "deploy", "prod")
	if err == nil {
		t.Fatalf("expected an error when pod.deploy.yml is missing")
	}
	if !strings.Contains(err.Error(), "loading deploy manifest") {
		t.Fatalf("expected a manifest-loading error, got: %v", err)
	}
}

func TestDeployCommand_UnknownTarget(t *testing.T) {
	tmpDir := t.TempDir()
	manifest := `name: myapp
version: 1.0.0
targets:
  prod:
    type: local
`
	os.WriteFile(filepath.Join(tmpDir, "pod.deploy.yml"), []byte(manifest), 0o644)

	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDeployCommand())

	_, err := executeCommandForGolden(root, "deploy", "staging")
	if err == nil {
		t.Fatalf("expected an error for an unknown target")
	}
	if !strings.Contains(err.Error(), `no target named "staging"`) {
		t.Fatalf("expected an unknown-target error, got: %v", err)
	}
}

func TestDeployCommand_DryRunPrintsPlan(t *testing.T) {
	tmpDir := t.TempDir()
	manifest := `name: myapp
version: 1.0.0
targets:
  prod:
    type: local
    operations:
      - ensure: swap
        size: 2G
`
	os.WriteFile(filepath.Join(tmpDir, "pod.deploy.yml"), []byte(manifest), 0o644)

	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDeployCommand())

	out, err := executeCommandForGolden(root, "deploy", "prod", "--dry-run")
	if err != nil {
		t.Fatalf("expected no error in dry-run mode, got: %v", err)
	}
	if !strings.Contains(out, "would-apply") {
		t.Fatalf("expected a dry-run plan listing would-apply, got: %q", out)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "pod-lock.json")); !os.IsNotExist(err) {
		t.Fatalf("expected dry-run not to write a lock file, stat err=%v", err)
	}
}

func TestDeployCommand_RunAppliesAndWritesLock(t *testing.T) {
	tmpDir := t.TempDir()
	currentUser, err := user.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manifest := `name: myapp
version: 1.0.0
targets:
  prod:
    type: local
    operations:
      - ensure: directory
        path: ` + tmpDir + `/data
        owner: ` + currentUser.Username + `
`
	os.WriteFile(filepath.Join(tmpDir, "pod.deploy.yml"), []byte(manifest), 0o644)

	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDeployCommand())

	out, err := executeCommandForGolden(root, "deploy", "prod")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(out, "applied") {
		t.Fatalf("expected the ensure to report applied, got: %q", out)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "pod-lock.json")); err != nil {
		t.Fatalf("expected a lock file to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "data")); err != nil {
		t.Fatalf("expected the ensured directory to exist: %v", err)
	}
}
