// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHStrategy holds one persistent SSH connection (and the SFTP session
// layered over it) for the lifetime of a single deploy invocation, per the
// target's user/host/port/keyPath. Every Run, RunScript, and UploadContent
// call reuses the same connection.
type SSHStrategy struct {
	mu     sync.Mutex
	cwd    string
	client *ssh.Client
	sftp   *sftp.Client
}

// DialSSH opens the connection a Target's deploy will run over.
// hostKeyCallback is injectable so tests (and a future
// `pod deploy --insecure-host-key` escape hatch) don't have to touch a real
// known_hosts file.
func DialSSH(target Target, hostKeyCallback ssh.HostKeyCallback) (*SSHStrategy, error) {
	key, err := os.ReadFile(target.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("deploy: reading SSH key %s: %w", target.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("deploy: parsing SSH key %s: %w", target.KeyPath, err)
	}

	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(target.Host, fmt.Sprintf("%d", target.effectivePort()))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("deploy: connecting to %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("deploy: opening SFTP session to %s: %w", addr, err)
	}

	cwd := target.DeployPath
	if cwd == "" {
		cwd = "."
	}
	return &SSHStrategy{client: client, sftp: sftpClient, cwd: cwd}, nil
}

func (s *SSHStrategy) Run(ctx context.Context, command string) (string, int, error) {
	s.mu.Lock()
	if applyCd(&s.cwd, command) {
		s.mu.Unlock()
		return "", 0, nil
	}
	cwd := s.cwd
	s.mu.Unlock()

	return s.runRaw(ctx, fmt.Sprintf("cd %s && %s", shellQuote(cwd), command))
}

func (s *SSHStrategy) runRaw(ctx context.Context, command string) (string, int, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", -1, fmt.Errorf("deploy: opening SSH session: %w", err)
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return output.String(), -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return output.String(), 0, nil
		}
		var exitErr *ssh.ExitError
		if asExitError(err, &exitErr) {
			return output.String(), exitErr.ExitStatus(), nil
		}
		return output.String(), -1, fmt.Errorf("deploy: running %q: %w", command, err)
	}
}

func asExitError(err error, target **ssh.ExitError) bool {
	ee, ok := err.(*ssh.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

// RunScript uploads the interpolated script body to a remote temp path,
// marks it executable, runs it, and removes it on every exit path —
// success, failure, or context cancellation.
func (s *SSHStrategy) RunScript(ctx context.Context, name, content string, vars map[string]string) (string, int, error) {
	expanded := interpolateVars(content, vars)
	remotePath := fmt.Sprintf("/tmp/%s.%d", scriptFileName(name), os.Getpid())

	if err := s.UploadContent(ctx, remotePath, []byte(expanded)); err != nil {
		return "", -1, err
	}
	defer s.removeRemote(remotePath)

	if err := s.sftp.Chmod(remotePath, 0o700); err != nil {
		return "", -1, fmt.Errorf("deploy: making script %s executable: %w", name, err)
	}

	return s.runRaw(ctx, remotePath)
}

func (s *SSHStrategy) removeRemote(path string) {
	_ = s.sftp.Remove(path)
}

// UploadContent writes content to path via write-temp-then-rename over
// SFTP, so a reader (including the lock file's own loader) never observes a
// partially-written file on the remote target.
func (s *SSHStrategy) UploadContent(ctx context.Context, path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := s.sftp.MkdirAll(dir); err != nil {
		return fmt.Errorf("deploy: creating remote directory for %s: %w", path, err)
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	f, err := s.sftp.Create(tmp)
	if err != nil {
		return fmt.Errorf("deploy: creating remote file %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		s.sftp.Remove(tmp)
		return fmt.Errorf("deploy: writing remote file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		s.sftp.Remove(tmp)
		return fmt.Errorf("deploy: closing remote file %s: %w", path, err)
	}
	if err := s.sftp.PosixRename(tmp, path); err != nil {
		// Not every sftp server advertises the posix-rename extension;
		// fall back to remove-then-rename, which converges but isn't atomic.
		s.sftp.Remove(path)
		if err := s.sftp.Rename(tmp, path); err != nil {
			s.sftp.Remove(tmp)
			return fmt.Errorf("deploy: committing remote file %s: %w", path, err)
		}
	}
	return nil
}

func (s *SSHStrategy) ReadJSON(ctx context.Context, path string, out any) (bool, error) {
	f, err := s.sftp.Open(path)
	if err != nil {
		return false, nil
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return false, nil
	}
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *SSHStrategy) SyncDirectory(ctx context.Context, source, destination string, exclude *ExcludeSet) error {
	return filepath.Walk(source, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if exclude.ExcludesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		remotePath := filepath.ToSlash(filepath.Join(destination, rel))
		if info.IsDir() {
			return s.sftp.MkdirAll(remotePath)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := s.UploadContent(ctx, remotePath, data); err != nil {
			return err
		}
		return s.sftp.Chmod(remotePath, info.Mode().Perm())
	})
}

func (s *SSHStrategy) Close() error {
	sftpErr := s.sftp.Close()
	clientErr := s.client.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return clientErr
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
