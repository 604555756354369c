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

// NewDockerizeCommand returns the `pod dockerize <env>` command.
//
// Container and container-compose file generation is out of this build's
// core scope; this command reports that rather than pretending to generate
// one.
func NewDockerizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dockerize <env>",
		Short: "Generate container files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "dockerize: container file generation for env %q is outside this build's core scope.\n", args[0])
			return nil
		},
	}

	return cmd
}
