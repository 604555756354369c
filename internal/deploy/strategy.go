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
	"path/filepath"
	"strings"
)

// Strategy is how the orchestrator reaches a target: a local shell or a
// persistent SSH session. One Strategy is acquired per deploy invocation
// and released on every exit path, so a remote target pays for exactly one
// connection setup no matter how many operations run against it.
type Strategy interface {
	// Run executes a shell command and collects combined stdout/stderr and
	// the exit code. A single-argument `cd <path>` is interpreted at the
	// strategy level as changing its tracked working directory; no shell
	// is invoked for it.
	Run(ctx context.Context, command string) (output string, exitCode int, err error)

	// RunScript writes content to a temporary location (after interpolating
	// `${…}` tokens against vars), makes it executable, runs it, and
	// removes it on every exit path — success, failure, or interruption.
	RunScript(ctx context.Context, name string, content string, vars map[string]string) (output string, exitCode int, err error)

	// UploadContent writes bytes to path, creating parent directories as
	// needed.
	UploadContent(ctx context.Context, path string, content []byte) error

	// ReadJSON reads and parses a JSON file into out. found is false (with
	// a nil error) if the file is missing or unparseable — both are
	// treated as absent.
	ReadJSON(ctx context.Context, path string, out any) (found bool, err error)

	// SyncDirectory recursively copies source to destination, skipping
	// anything the exclude set matches.
	SyncDirectory(ctx context.Context, source, destination string, exclude *ExcludeSet) error

	// Close releases the strategy's underlying connection, if any.
	Close() error
}

// interpolateVars expands `${key}` tokens in a script body against vars —
// the same non-recursive substitution the manifest loader uses.
func interpolateVars(content string, vars map[string]string) string {
	ctx := make(map[string]string, len(vars))
	for k, v := range vars {
		ctx[k] = v
	}
	return interpolationToken.ReplaceAllStringFunc(content, func(token string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(token, "${"), "}")
		if v, ok := ctx[key]; ok {
			return v
		}
		return token
	})
}

func scriptFileName(name string) string {
	return fmt.Sprintf("pod-script-%s.sh", name)
}

// applyCd recognizes a single-argument `cd <path>` command, updating cwd in
// place and reporting that it handled the command (no shell invocation
// needed). Any other command form is left for the caller to run normally.
func applyCd(cwd *string, command string) bool {
	trimmed := strings.TrimSpace(command)
	if !strings.HasPrefix(trimmed, "cd ") {
		return false
	}
	arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "cd "))
	if arg == "" || strings.ContainsAny(arg, " \t&&|;") {
		return false
	}
	if filepath.IsAbs(arg) {
		*cwd = arg
	} else {
		*cwd = filepath.Join(*cwd, arg)
	}
	return true
}
