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
	"net/http"
	"time"

	"pod/pkg/logging"
)

// Orchestrator drives one target's deploy: read the lock, apply the
// version handshake, then dispatch operations in declared order, aborting
// the remainder of the list on the first failure (§4.4, §5).
type Orchestrator struct {
	Manifest     *Manifest
	TargetName   string
	Target       Target
	Strategy     Strategy
	Lock         *LockStore
	Logger       logging.Logger
	ForceInstall bool
	DryRun       bool
}

// Result is one operation's outcome.
type Result struct {
	Name   string
	Kind   string
	Action string // "skipped", "applied", "would-apply", "would-verify"
}

// Run performs (or, in DryRun mode, previews) the deploy.
func (o *Orchestrator) Run(ctx context.Context) ([]Result, error) {
	state, err := o.Lock.Load(ctx)
	if err != nil {
		return nil, err
	}

	if state.DeploymentVersion != o.Manifest.Version {
		o.logf("manifest version changed %q -> %q, clearing once-actions", state.DeploymentVersion, o.Manifest.Version)
		state.OnceActions = nil
		state.DeploymentVersion = o.Manifest.Version
		if !o.DryRun {
			if err := o.Lock.Save(ctx, state); err != nil {
				return nil, err
			}
		}
	}

	var results []Result
	for _, op := range o.Target.Operations {
		r, err := o.dispatch(ctx, op, state)
		if err != nil {
			return results, &OperationError{Name: op.Name, Err: err}
		}
		results = append(results, r)
	}
	return results, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, op Operation, state *LockState) (Result, error) {
	switch op.Kind {
	case OperationEnsure:
		return o.dispatchEnsure(ctx, op, state)
	case OperationAction:
		return o.dispatchAction(ctx, op, state)
	case OperationVerify:
		return o.dispatchVerify(ctx, op)
	default:
		return Result{}, fmt.Errorf("deploy: unknown operation kind %q", op.Kind)
	}
}

func (o *Orchestrator) dispatchEnsure(ctx context.Context, op Operation, state *LockState) (Result, error) {
	if ensureSatisfied(op, state, o.ForceInstall) {
		o.logf("ensure %s already satisfied", op.Name)
		return Result{Name: op.Name, Kind: OperationEnsure, Action: "skipped"}, nil
	}
	if o.DryRun {
		return Result{Name: op.Name, Kind: OperationEnsure, Action: "would-apply"}, nil
	}

	if err := runEnsure(ctx, o.Strategy, op); err != nil {
		return Result{}, err
	}
	state.Ensures[op.Name] = EnsureEntry{Version: op.Version, Config: ensureConfig(op)}
	if err := o.Lock.Save(ctx, state); err != nil {
		return Result{}, err
	}
	o.logf("ensure %s applied", op.Name)
	return Result{Name: op.Name, Kind: OperationEnsure, Action: "applied"}, nil
}

func (o *Orchestrator) dispatchAction(ctx context.Context, op Operation, state *LockState) (Result, error) {
	if op.When == WhenNever {
		return Result{Name: op.Name, Kind: OperationAction, Action: "skipped"}, nil
	}

	onceID := "action_" + op.Name
	if op.When == WhenOnce && state.HasOnceAction(onceID) {
		o.logf("once-action %s already satisfied", op.Name)
		return Result{Name: op.Name, Kind: OperationAction, Action: "skipped"}, nil
	}

	if o.DryRun {
		return Result{Name: op.Name, Kind: OperationAction, Action: "would-apply"}, nil
	}

	if err := o.runAction(ctx, op); err != nil {
		return Result{}, err
	}

	if op.When == WhenOnce {
		state.AddOnceAction(onceID)
		if err := o.Lock.Save(ctx, state); err != nil {
			return Result{}, err
		}
	}
	o.logf("action %s applied", op.Name)
	return Result{Name: op.Name, Kind: OperationAction, Action: "applied"}, nil
}

func (o *Orchestrator) runAction(ctx context.Context, op Operation) error {
	switch op.Action {
	case ActionSync:
		exclude := CompileExcludes(op.Exclude)
		return o.Strategy.SyncDirectory(ctx, op.Source, op.Destination, exclude)
	case ActionCommand:
		output, exitCode, err := o.Strategy.Run(ctx, op.Command)
		if err != nil {
			return err
		}
		if exitCode != 0 {
			return fmt.Errorf("command exited %d: %s", exitCode, output)
		}
		return nil
	default:
		return fmt.Errorf("deploy: unknown action kind %q", op.Action)
	}
}

func (o *Orchestrator) dispatchVerify(ctx context.Context, op Operation) (Result, error) {
	if o.DryRun {
		return Result{Name: op.Name, Kind: OperationVerify, Action: "would-verify"}, nil
	}
	if err := o.runVerify(ctx, op); err != nil {
		return Result{}, err
	}
	o.logf("verify %s passed", op.Name)
	return Result{Name: op.Name, Kind: OperationVerify, Action: "applied"}, nil
}

func (o *Orchestrator) runVerify(ctx context.Context, op Operation) error {
	switch op.Verify {
	case VerifyHTTP:
		timeout := op.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, op.URL, nil)
		if err != nil {
			return fmt.Errorf("deploy: building verify request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("deploy: verify GET %s: %w", op.URL, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("deploy: verify GET %s returned status %d", op.URL, resp.StatusCode)
		}
		return nil
	case VerifyCommand:
		output, exitCode, err := o.Strategy.Run(ctx, op.Command)
		if err != nil {
			return err
		}
		if exitCode != 0 {
			return fmt.Errorf("verify command exited %d: %s", exitCode, output)
		}
		return nil
	default:
		return fmt.Errorf("deploy: unknown verify kind %q", op.Verify)
	}
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Info(fmt.Sprintf(format, args...))
	}
}

// OperationError wraps a failure on one named operation, carrying the
// underlying cause, per the DeployOperationError contract (§7).
type OperationError struct {
	Name string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("deploy: operation %q failed: %v", e.Name, e.Err)
}
func (e *OperationError) Unwrap() error { return e.Err }
