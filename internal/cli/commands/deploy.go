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
	"golang.org/x/crypto/ssh"

	"pod/internal/deploy"
	"pod/pkg/logging"
)

// NewDeployCommand returns the `pod deploy <target> [--force-install]`
// command — the one subcommand backed by real core logic.
func NewDeployCommand() *cobra.Command {
	var forceInstall bool

	cmd := &cobra.Command{
		Use:   "deploy <target>",
		Short: "Run the deploy orchestrator against a named target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, args[0], forceInstall)
		},
	}

	cmd.Flags().BoolVar(&forceInstall, "force-install", false, "re-run every ensure operation regardless of lock state")

	return cmd
}

func runDeploy(cmd *cobra.Command, targetName string, forceInstall bool) error {
	flags, err := ResolveFlags(cmd, nil)
	if err != nil {
		return fmt.Errorf("resolving flags: %w", err)
	}
	logger := logging.NewLogger(flags.Verbose)

	manifest, err := deploy.LoadManifest(deploy.DefaultManifestPath)
	if err != nil {
		return fmt.Errorf("loading deploy manifest: %w", err)
	}

	target, ok := manifest.Target(targetName)
	if !ok {
		return fmt.Errorf("deploy: no target named %q in %s", targetName, deploy.DefaultManifestPath)
	}

	var strategy deploy.Strategy
	if target.IsLocal() {
		strategy = deploy.NewLocalStrategy()
	} else {
		strategy, err = deploy.DialSSH(target, ssh.InsecureIgnoreHostKey())
		if err != nil {
			return fmt.Errorf("deploy: connecting to target %q: %w", targetName, err)
		}
	}
	defer strategy.Close()

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	lock := deploy.NewLockStore(strategy, target.LockPath(cwd))

	orchestrator := &deploy.Orchestrator{
		Manifest:     manifest,
		TargetName:   targetName,
		Target:       target,
		Strategy:     strategy,
		Lock:         lock,
		Logger:       logger,
		ForceInstall: forceInstall,
	}

	ctx := cmd.Context()

	if flags.DryRun {
		plan, err := deploy.BuildPlan(ctx, orchestrator)
		if err != nil {
			return fmt.Errorf("deploy: planning target %q: %w", targetName, err)
		}
		fmt.Fprint(cmd.OutOrStdout(), plan.String())
		return nil
	}

	results, err := orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("deploy: target %q: %w", targetName, err)
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-8s %s\n", r.Action, r.Kind, r.Name)
	}
	return nil
}
