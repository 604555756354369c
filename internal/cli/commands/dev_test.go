// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - A Go-based CLI for orchestrating local-first multi-service deployments using Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// testRoot builds a bare root command carrying the same persistent flags
// internal/cli.NewRootCommand registers, so subcommands under test can call
// ResolveFlags exactly as they would in the real binary.
func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "pod"}
	root.PersistentFlags().StringP("config", "c", "", "path to pod config file")
	root.PersistentFlags().Bool("dry-run", false, "show actions without executing")
	root.PersistentFlags().StringP("env", "e", "", "target environment")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	return root
}

func executeCommandForGolden(root *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestNewDevCommand_HasExpectedMetadata(t *testing.T) {
	cmd := NewDevCommand()

	if cmd.Use != "dev" {
		t.Fatalf("expected Use to be 'dev', got %q", cmd.Use)
	}

	if cmd.Short == "" {
		t.Fatalf("expected Short description to be non-empty")
	}
}

func TestDevCommand_ConfigNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDevCommand())

	_, err := executeCommandForGolden(root, "dev")
	if err == nil {
		t.Fatalf("expected error when config file is missing")
	}

	if !strings.Contains(err.Error(), "pod config not found") {
		t.Fatalf("expected config not found error, got: %v", err)
	}
}

func TestDevCommand_DryRun(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pod.yml")

	configContent := `project:
  name: test-app
`
	os.WriteFile(configPath, []byte(configContent), 0644)
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDevCommand())

	out, err := executeCommandForGolden(root, "dev", "--dry-run")
	if err != nil {
		t.Fatalf("expected no error in dry-run mode, got: %v", err)
	}
	_ = out
}

func TestDevCommand_LoadsConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pod.yml")

	configContent := `project:
  name: test-app
`
	os.WriteFile(configPath, []byte(configContent), 0644)
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(tmpDir)

	root := testRoot()
	root.AddCommand(NewDevCommand())

	out, err := executeCommandForGolden(root, "dev")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(out, "dev:") {
		t.Fatalf("expected dev output, got: %q", out)
	}
}

func TestDevCommand_Help(t *testing.T) {
	root := testRoot()
	root.AddCommand(NewDevCommand())

	out, err := executeCommandForGolden(root, "dev", "--help")
	if err != nil {
		t.Fatalf("help command should not error, got: %v", err)
	}

	if !strings.Contains(out, "watched build") {
		t.Fatalf("expected help text, got: %q", out)
	}
}
