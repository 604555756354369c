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
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pod/pkg/config"
	"pod/pkg/logging"
)

// NewNewCommand returns the `pod new <name>` command. It writes the minimal
// project config a later `pod deploy` needs; it does not generate any
// project boilerplate or source tree.
func NewNewCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Scaffold a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			verbose, _ := cmd.Flags().GetBool("verbose")
			logger := logging.NewLogger(verbose)
			name := args[0]

			if configPath == "" {
				configPath = config.DefaultConfigPath()
			}

			exists, err := config.Exists(configPath)
			if err != nil {
				return fmt.Errorf("checking existing config at %s: %w", configPath, err)
			}
			if exists {
				return fmt.Errorf("a pod config file already exists at %s", configPath)
			}

			cfg := &config.Config{Project: config.ProjectConfig{Name: name}}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}

			logger.Info("scaffolded project", logging.NewField("name", name), logging.NewField("path", configPath))
			fmt.Fprintf(out, "Created %s for project %q.\n", configPath, name)
			fmt.Fprintf(out, "Project scaffolding is outside this build's core; wire up sources under the generated tree yourself.\n")

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to pod config file (default: pod.yml)")

	return cmd
}
