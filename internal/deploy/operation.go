// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package deploy

import (
	"fmt"
	"time"
)

// Operation kinds, per the manifest's three operation variants.
const (
	OperationEnsure = "ensure"
	OperationAction = "action"
	OperationVerify = "verify"
)

// Ensure kinds.
const (
	EnsureSwap      = "swap"
	EnsureDocker    = "docker"
	EnsureDirectory = "directory"
)

// Action `when` discipline.
const (
	WhenAlways = "always"
	WhenOnce   = "once"
	WhenNever  = "never"
)

// Action kinds.
const (
	ActionSync    = "sync"
	ActionCommand = "command"
)

// Verify kinds.
const (
	VerifyHTTP    = "http"
	VerifyCommand = "command"
)

// Operation is one manifest operation. It is a discriminated union over
// ensure/action/verify; only the fields relevant to Kind (and, for ensure
// and action, to the sub-kind) are populated.
type Operation struct {
	Kind string `yaml:"-"`
	Name string `yaml:"name,omitempty"`

	// ensure
	Ensure  string `yaml:"ensure,omitempty"`
	Size    string `yaml:"size,omitempty"`    // swap
	Path    string `yaml:"path,omitempty"`    // directory
	Owner   string `yaml:"owner,omitempty"`   // directory
	Version string `yaml:"version,omitempty"` // docker

	// action
	Action      string   `yaml:"action,omitempty"`
	When        string   `yaml:"when,omitempty"`
	Source      string   `yaml:"source,omitempty"`      // sync
	Destination string   `yaml:"destination,omitempty"` // sync
	Exclude     []string `yaml:"exclude,omitempty"`     // sync
	Command     string   `yaml:"command,omitempty"`     // command

	// verify
	Verify  string        `yaml:"verify,omitempty"`
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// UnmarshalYAML detects the operation variant from whichever of the
// ensure/action/verify discriminator keys is present.
func (op *Operation) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Operation
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*op = Operation(p)

	switch {
	case op.Ensure != "":
		op.Kind = OperationEnsure
		if op.Name == "" {
			op.Name = ensureKey(*op)
		}
	case op.Action != "":
		op.Kind = OperationAction
		if op.When == "" {
			op.When = WhenAlways
		}
	case op.Verify != "":
		op.Kind = OperationVerify
	default:
		return fmt.Errorf("deploy: operation has none of ensure:, action:, or verify:")
	}
	return nil
}

// ensureKey computes the deterministic lock-entry key for an ensure
// operation: "swap", "docker", or "directory_<path>".
func ensureKey(op Operation) string {
	if op.Ensure == EnsureDirectory {
		return "directory_" + op.Path
	}
	return op.Ensure
}
