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
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStrategy_RunExecutesCommand(t *testing.T) {
	s := NewLocalStrategy()
	output, code, err := s.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if output != "hello\n" {
		t.Fatalf("expected output %q, got %q", "hello\n", output)
	}
}

func TestLocalStrategy_RunReportsNonZeroExit(t *testing.T) {
	s := NewLocalStrategy()
	_, code, err := s.Run(context.Background(), "exit 3")
	if err != nil {
		t.Fatalf("a nonzero exit should not be a Go-level error: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
}

func TestLocalStrategy_CdTracksWorkingDirectoryWithoutShelling(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStrategy()

	if _, _, err := s.Run(context.Background(), "cd "+dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.cwd != dir {
		t.Fatalf("expected cwd to be %q, got %q", dir, s.cwd)
	}

	output, _, err := s.Run(context.Background(), "pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotResolved, err := filepath.EvalSymlinks(trimNewline(output))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotResolved != resolved {
		t.Fatalf("expected pwd to report %q, got %q", resolved, gotResolved)
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func TestLocalStrategy_RunScriptInterpolatesAndCleansUp(t *testing.T) {
	s := NewLocalStrategy()
	var before []string
	before, _ = filepath.Glob(filepath.Join(os.TempDir(), "pod-script-*"))

	output, code, err := s.RunScript(context.Background(), "greet", "#!/bin/sh\necho hi ${name}\n", map[string]string{"name": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if output != "hi world\n" {
		t.Fatalf("expected output %q, got %q", "hi world\n", output)
	}

	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "pod-script-*"))
	if len(after) != len(before) {
		t.Fatalf("expected the script's temp dir to be removed, before=%v after=%v", before, after)
	}
}

func TestLocalStrategy_UploadContentAndReadJSON(t *testing.T) {
	s := NewLocalStrategy()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.json")

	if err := s.UploadContent(context.Background(), path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out struct {
		A int `json:"a"`
	}
	found, err := s.ReadJSON(context.Background(), path, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || out.A != 1 {
		t.Fatalf("expected to read back {A:1}, got found=%v out=%+v", found, out)
	}
}

func TestLocalStrategy_ReadJSONToleratesMissingAndCorrupt(t *testing.T) {
	s := NewLocalStrategy()
	dir := t.TempDir()

	var out map[string]any
	found, err := s.ReadJSON(context.Background(), filepath.Join(dir, "missing.json"), &out)
	if err != nil || found {
		t.Fatalf("expected a missing file to report found=false, nil error; got found=%v err=%v", found, err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found, err = s.ReadJSON(context.Background(), corrupt, &out)
	if err != nil || found {
		t.Fatalf("expected a corrupt file to report found=false, nil error; got found=%v err=%v", found, err)
	}
}

func TestLocalStrategy_SyncDirectoryHonorsExclude(t *testing.T) {
	source := t.TempDir()
	destination := t.TempDir()

	if err := os.MkdirAll(filepath.Join(source, "node_modules"), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(source, "node_modules", "pkg.js"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(source, "app.go"), []byte("package main"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(source, "debug.log"), []byte("log"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := NewLocalStrategy()
	exclude := CompileExcludes([]string{"node_modules/", "*.log"})
	if err := s.SyncDirectory(context.Background(), source, destination, exclude); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destination, "app.go")); err != nil {
		t.Fatalf("expected app.go to be synced: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destination, "node_modules")); !os.IsNotExist(err) {
		t.Fatalf("expected node_modules to be excluded, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(destination, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("expected debug.log to be excluded, stat err=%v", err)
	}
}
