// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package deploy is the idempotent deploy orchestrator: given a target's
// manifest entry, it selects a connection strategy (ssh or local), ensures
// declared resources exist, runs declared actions, verifies the result, and
// persists progress to a lock file so that re-running converges rather than
// repeating work.
package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the document at <cwd>/pod.deploy.yml. yaml.v3 resolves `<<:`
// merge-key anchors natively during Unmarshal, so a target can extend
// another target's block without any merge logic of our own.
type Manifest struct {
	Name    string            `yaml:"name"`
	Version string            `yaml:"version"`
	Targets map[string]Target `yaml:"targets"`
}

// DefaultManifestPath is where `pod deploy` looks for the manifest.
const DefaultManifestPath = "pod.deploy.yml"

// Target is one named deploy destination.
type Target struct {
	Type       string            `yaml:"type"`
	Host       string            `yaml:"host"`
	User       string            `yaml:"user"`
	KeyPath    string            `yaml:"keyPath"`
	Port       int               `yaml:"port"`
	DeployPath string            `yaml:"deployPath"`
	Vars       map[string]string `yaml:"vars"`
	Operations []Operation       `yaml:"operations"`
}

// IsLocal reports whether a target runs against the local machine: either
// explicit `type: local`, or no host given at all.
func (t Target) IsLocal() bool {
	return t.Type == "local" || (t.Type == "" && t.Host == "")
}

func (t Target) effectivePort() int {
	if t.Port != 0 {
		return t.Port
	}
	return 22
}

// LoadManifest reads, validates, and interpolates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deploy: reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("deploy: parsing manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.interpolate()
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("deploy: manifest missing required key %q", "name")
	}
	if m.Version == "" {
		return fmt.Errorf("deploy: manifest missing required key %q", "version")
	}
	if len(m.Targets) == 0 {
		return fmt.Errorf("deploy: manifest must declare at least one target")
	}
	for name, t := range m.Targets {
		if t.Type != "local" && t.Host == "" {
			return fmt.Errorf("deploy: target %q must set type: local or provide a host", name)
		}
		if t.Type != "local" {
			if t.User == "" || t.KeyPath == "" || t.DeployPath == "" {
				return fmt.Errorf("deploy: target %q requires host, user, keyPath, and deployPath", name)
			}
		}
		seen := make(map[string]bool)
		for _, op := range t.Operations {
			if op.Kind == OperationAction && op.When == WhenOnce {
				if seen[op.Name] {
					return fmt.Errorf("deploy: target %q has duplicate once-action name %q", name, op.Name)
				}
				seen[op.Name] = true
			}
		}
	}
	return nil
}

// Target looks up one target by name.
func (m *Manifest) Target(name string) (Target, bool) {
	t, ok := m.Targets[name]
	return t, ok
}

var interpolationToken = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolate expands every `${key}` token against the merged manifest ∪
// target context. Non-recursive by design (§9): a substituted value is
// never itself rescanned for further tokens.
func (m *Manifest) interpolate() {
	for name, t := range m.Targets {
		ctx := map[string]string{
			"name":    m.Name,
			"version": m.Version,
		}
		for k, v := range t.Vars {
			ctx[k] = v
		}

		t.Host = interpolate(t.Host, ctx)
		t.User = interpolate(t.User, ctx)
		t.DeployPath = interpolate(t.DeployPath, ctx)
		t.KeyPath = expandHome(interpolate(t.KeyPath, ctx))

		for i := range t.Operations {
			op := &t.Operations[i]
			op.Command = interpolate(op.Command, ctx)
			op.Source = expandHome(interpolate(op.Source, ctx))
			op.Destination = interpolate(op.Destination, ctx)
			op.URL = interpolate(op.URL, ctx)
			op.Path = interpolate(op.Path, ctx)
			op.Owner = interpolate(op.Owner, ctx)
		}

		m.Targets[name] = t
	}
}

func interpolate(s string, ctx map[string]string) string {
	if s == "" {
		return s
	}
	return interpolationToken.ReplaceAllStringFunc(s, func(token string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(token, "${"), "}")
		if v, ok := ctx[key]; ok {
			return v
		}
		return token
	})
}

// expandHome tilde-expands a local path field and resolves it against the
// current working directory when it is not absolute. An empty path stays
// empty.
func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path
}

// LockPath returns where this target's lock file lives: under its
// deployPath when remote, under cwd when local.
func (t Target) LockPath(cwd string) string {
	if t.IsLocal() {
		return filepath.Join(cwd, "pod-lock.json")
	}
	return filepath.ToSlash(filepath.Join(t.DeployPath, "pod-lock.json"))
}
