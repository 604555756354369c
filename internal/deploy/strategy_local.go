// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"pod/pkg/executil"
)

// LocalStrategy runs commands directly on the machine running the CLI, for
// targets whose manifest sets `type: local` or omits host.
type LocalStrategy struct {
	mu     sync.Mutex
	cwd    string
	runner executil.Runner
}

func NewLocalStrategy() *LocalStrategy {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &LocalStrategy{cwd: cwd, runner: executil.NewRunner()}
}

func (s *LocalStrategy) Run(ctx context.Context, command string) (string, int, error) {
	s.mu.Lock()
	if applyCd(&s.cwd, command) {
		s.mu.Unlock()
		return "", 0, nil
	}
	cwd := s.cwd
	s.mu.Unlock()

	cmd := executil.NewCommand("sh", "-c", command)
	cmd.Dir = cwd
	result, err := s.runner.Run(ctx, cmd)
	if result == nil {
		return "", -1, fmt.Errorf("deploy: running %q locally: %w", command, err)
	}
	var buf bytes.Buffer
	buf.Write(result.Stdout)
	buf.Write(result.Stderr)
	return buf.String(), result.ExitCode, nil
}

func (s *LocalStrategy) RunScript(ctx context.Context, name, content string, vars map[string]string) (string, int, error) {
	expanded := interpolateVars(content, vars)

	dir, err := os.MkdirTemp("", "pod-script-")
	if err != nil {
		return "", -1, fmt.Errorf("deploy: creating temp dir for script %s: %w", name, err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, scriptFileName(name))
	if err := os.WriteFile(path, []byte(expanded), 0o700); err != nil {
		return "", -1, fmt.Errorf("deploy: writing script %s: %w", name, err)
	}

	cmd := executil.NewCommand(path)
	result, err := s.runner.Run(ctx, cmd)
	if result == nil {
		return "", -1, fmt.Errorf("deploy: running script %s: %w", name, err)
	}
	var buf bytes.Buffer
	buf.Write(result.Stdout)
	buf.Write(result.Stderr)
	return buf.String(), result.ExitCode, nil
}

// UploadContent writes content to path via write-temp-then-rename, so a
// reader (including the lock file's own loader) never observes a
// partially-written file.
func (s *LocalStrategy) UploadContent(ctx context.Context, path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("deploy: creating local directory for %s: %w", path, err)
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("deploy: writing local file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("deploy: committing local file %s: %w", path, err)
	}
	return nil
}

func (s *LocalStrategy) ReadJSON(ctx context.Context, path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *LocalStrategy) SyncDirectory(ctx context.Context, source, destination string, exclude *ExcludeSet) error {
	return filepath.Walk(source, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if exclude.ExcludesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(destination, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(p, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func (s *LocalStrategy) Close() error { return nil }
