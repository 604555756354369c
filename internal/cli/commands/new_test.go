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
	"path/filepath"
	"strings"
	"testing"

	"pod/pkg/config"
)

func TestNewNewCommand_HasExpectedMetadata(t *testing.T) {
	cmd := NewNewCommand()

	if cmd.Use != "new <name>" {
		t.Fatalf("expected Use to be 'new <name>', got %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Fatalf("expected Short description to be non-empty")
	}
}

func TestNewCommand_WritesProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewNewCommand())

	out, err := executeCommandForGolden(root, "new", "myapp")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(out, "myapp") {
		t.Fatalf("expected output to mention the project name, got: %q", out)
	}

	cfg, err := config.Load(filepath.Join(tmpDir, "pod.yml"))
	if err != nil {
		t.Fatalf("expected a readable config file: %v", err)
	}
	if cfg.Project.Name != "myapp" {
		t.Fatalf("expected project name %q, got %q", "myapp", cfg.Project.Name)
	}
}

func TestNewCommand_RejectsExistingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "pod.yml"), []byte("project:\n  name: existing\n"), 0o644)

	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewNewCommand())

	_, err := executeCommandForGolden(root, "new", "myapp")
	if err == nil {
		t.Fatalf("expected an error when a config file already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected an already-exists error, got: %v", err)
	}
}

func TestNewCommand_CustomConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewNewCommand())

	customPath := filepath.Join(tmpDir, "custom.yml")
	_, err := executeCommandForGolden(root, "new", "myapp", "--config", customPath)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := os.Stat(customPath); err != nil {
		t.Fatalf("expected config to be written at the custom path: %v", err)
	}
}
