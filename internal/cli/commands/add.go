// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAddCommand returns the `pod add (c|f) <name>` command.
//
// Component and feature boilerplate generation is out of this build's core
// scope; this command reports that rather than pretending to scaffold one.
func NewAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add (c|f) <name>",
		Short: "Generate a component or feature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, name := args[0], args[1]
			switch kind {
			case "c", "f":
			default:
				return fmt.Errorf("add: first argument must be %q or %q, got %q", "c", "f", kind)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "add: boilerplate generation for %s %q is outside this build's core scope.\n", kindLabel(kind), name)
			return nil
		},
	}

	return cmd
}

func kindLabel(kind string) string {
	if kind == "c" {
		return "component"
	}
	return "feature"
}
