// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package deploy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pod.deploy.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoadManifest_ValidLocalTarget(t *testing.T) {
	path := writeManifest(t, `
name: myapp
version: "1.0.0"
targets:
  dev:
    type: local
    operations:
      - ensure: docker
      - action: command
        when: always
        command: "echo hi"
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, ok := m.Target("dev")
	if !ok {
		t.Fatalf("expected target %q to exist", "dev")
	}
	if !target.IsLocal() {
		t.Fatalf("expected target to be local")
	}
	if len(target.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(target.Operations))
	}
	if target.Operations[0].Kind != OperationEnsure || target.Operations[0].Name != "docker" {
		t.Fatalf("expected first operation to be ensure:docker, got %+v", target.Operations[0])
	}
}

func TestLoadManifest_SSHTargetRequiresConnectionFields(t *testing.T) {
	path := writeManifest(t, `
name: myapp
version: "1.0.0"
targets:
  prod:
    host: example.com
    operations:
      - ensure: docker
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected an error for an ssh target missing user/keyPath/deployPath")
	}
}

func TestLoadManifest_RejectsDuplicateOnceActionNames(t *testing.T) {
	path := writeManifest(t, `
name: myapp
version: "1.0.0"
targets:
  dev:
    type: local
    operations:
      - action: command
        name: migrate
        when: once
        command: "echo one"
      - action: command
        name: migrate
        when: once
        command: "echo two"
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected an error for duplicate once-action names")
	}
}

func TestLoadManifest_InterpolatesTokens(t *testing.T) {
	path := writeManifest(t, `
name: myapp
version: "2.3.4"
targets:
  dev:
    type: local
    deployPath: /srv/${name}/${version}
    operations:
      - action: command
        when: always
        command: "deploy ${name} version ${version}"
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, _ := m.Target("dev")
	if want := "deploy myapp version 2.3.4"; target.Operations[0].Command != want {
		t.Fatalf("expected interpolated command %q, got %q", want, target.Operations[0].Command)
	}
	if want := "/srv/myapp/2.3.4"; target.DeployPath != want {
		t.Fatalf("expected interpolated deployPath %q, got %q", want, target.DeployPath)
	}
}

func TestLoadManifest_RejectsMissingTargets(t *testing.T) {
	path := writeManifest(t, `
name: myapp
version: "1.0.0"
targets: {}
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected an error for a manifest with no targets")
	}
}
