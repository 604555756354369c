// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package commands contains Cobra subcommands for the pod CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pod/pkg/config"
	"pod/pkg/logging"
)

// NewDevCommand returns the `pod dev` command.
//
// The watched build pipeline is out of this build's core scope. This
// command validates that a project config is present and reports what it
// would otherwise hand off to the bundler; it does not implement hot-reload
// or bundling itself.
func NewDevCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the watched build",
		Long:  "Loads pod.yml and would start the watched build pipeline. The bundler integration is outside this build's core.",
		RunE:  runDev,
	}

	return cmd
}

func runDev(cmd *cobra.Command, args []string) error {
	flags, err := ResolveFlags(cmd, nil)
	if err != nil {
		return fmt.Errorf("resolving flags: %w", err)
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		if err == config.ErrConfigNotFound {
			return fmt.Errorf("pod config not found at %s", flags.Config)
		}
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(flags.Verbose)
	if flags.DryRun {
		logger.Info("dry-run: would start watched build", logging.NewField("project", cfg.Project.Name))
		return nil
	}

	logger.Info("watched build is not implemented in this core; see the bundler integration contract",
		logging.NewField("project", cfg.Project.Name),
	)
	fmt.Fprintln(cmd.OutOrStdout(), "dev: watched build pipeline is outside this build's core scope.")
	return nil
}
