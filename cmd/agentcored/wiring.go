// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/agentregistry"
	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/converter/amp"
	"github.com/bureau-foundation/agentcore/converter/claude"
	"github.com/bureau-foundation/agentcore/converter/codex"
	"github.com/bureau-foundation/agentcore/converter/opencode"
	"github.com/bureau-foundation/agentcore/httpapi"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/lib/config"
	"github.com/bureau-foundation/agentcore/sessionmanager"
	"github.com/bureau-foundation/agentcore/universal"
)

// subprocessKind bundles the per-kind glue a SubprocessDriver needs:
// argv construction, the converter, and the stdin control-channel
// writer. Claude, Codex, and Amp each get one; OpenCode runs over
// ServerManager instead.
type subprocessKind struct {
	argv  agentdriver.ArgvBuilder
	conv  converter.Converter
	stdio agentdriver.StdinWriter
}

var subprocessKinds = map[agentregistry.Kind]subprocessKind{
	agentregistry.Claude: {argv: agentdriver.ClaudeArgv, conv: claude.New(), stdio: agentdriver.ClaudeStdio()},
	agentregistry.Codex:  {argv: agentdriver.CodexArgv, conv: codex.New(), stdio: agentdriver.JSONLineStdio()},
	agentregistry.Amp:    {argv: agentdriver.AmpArgv, conv: amp.New(), stdio: agentdriver.JSONLineStdio()},
}

// buildDriverBuilders wires one sessionmanager.DriverBuilder per
// catalogued kind: subprocess kinds each get a fresh SubprocessDriver,
// OpenCode gets a handle off the one shared ServerManager. serverManager
// is started lazily by CreateSession; EagerStart in config starts it
// up front instead.
func buildDriverBuilders(registry *agentregistry.Registry, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (map[agentregistry.Kind]sessionmanager.DriverBuilder, *agentdriver.ServerManager) {
	builders := make(map[agentregistry.Kind]sessionmanager.DriverBuilder)

	for kind, sub := range subprocessKinds {
		kind, sub := kind, sub
		builders[kind] = func(spec agentdriver.Spec) (agentdriver.Driver, error) {
			entry, ok := registry.Entry(kind)
			if !ok {
				return nil, universal.NewError(universal.UnsupportedAgent, fmt.Sprintf("unknown agent %q", kind))
			}
			binaryPath := filepath.Join(cfg.Paths.Bin, entry.BinaryName)
			if _, err := os.Stat(binaryPath); err != nil {
				return nil, universal.NewError(universal.AgentNotInstalled, fmt.Sprintf("%s binary not found at %s", kind, binaryPath)).
					WithContext(universal.ErrorContext{Agent: string(kind), SessionID: spec.SessionID})
			}

			credentialEnv, err := registry.CredentialEnv(kind, hostCredentials())
			if err != nil {
				return nil, err
			}
			spec.CredentialEnv = credentialEnv

			// Start is called by sessioncore.Core.Start, not here — the
			// builder only constructs the driver.
			return agentdriver.NewSubprocessDriver(binaryPath, spec, sub.argv, sub.conv, sub.stdio, logger), nil
		}
	}

	openCodeBinary := filepath.Join(cfg.Paths.Bin, mustEntry(registry, agentregistry.OpenCode).BinaryName)
	serverManager := agentdriver.NewServerManager(agentdriver.ServerManagerConfig{
		BinaryPath:      openCodeBinary,
		PortRangeStart:  cfg.Server.PortRangeStart,
		PortRangeEnd:    cfg.Server.PortRangeEnd,
		StartupDeadline: cfg.Server.StartupDeadline,
		RestartAttempts: cfg.Server.RestartAttempts,
	}, opencode.New(), clk, logger)

	builders[agentregistry.OpenCode] = func(spec agentdriver.Spec) (agentdriver.Driver, error) {
		return serverManager.CreateSession(context.Background(), spec)
	}

	return builders, serverManager
}

func mustEntry(registry *agentregistry.Registry, kind agentregistry.Kind) agentregistry.Entry {
	entry, _ := registry.Entry(kind)
	return entry
}

// hostCredentials exposes the daemon process's own environment as the
// pool the registry's CredentialEnv draws from. The daemon runs
// unprivileged inside the sandbox; the host-machine credential
// extractor that populates this environment from a secrets store is
// an external collaborator, out of scope here.
func hostCredentials() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return env
}

// binaryInstaller implements httpapi.Installer by checking whether the
// binary is already present under the configured bin directory.
// Downloading agent binaries from vendor URLs is an external
// collaborator's job; this installer can only report what is or
// isn't already there.
type binaryInstaller struct {
	registry *agentregistry.Registry
	binDir   string
}

func (i *binaryInstaller) Install(ctx context.Context, kind agentregistry.Kind, reinstall bool) (httpapi.InstallResult, error) {
	entry, ok := i.registry.Entry(kind)
	if !ok {
		return httpapi.InstallResult{}, universal.NewError(universal.UnsupportedAgent, fmt.Sprintf("unknown agent %q", kind))
	}

	path := filepath.Join(i.binDir, entry.BinaryName)
	if _, err := os.Stat(path); err != nil {
		return httpapi.InstallResult{}, universal.NewError(universal.InstallFailed,
			fmt.Sprintf("%s is not present at %s; this daemon does not fetch agent binaries itself", kind, path)).
			WithContext(universal.ErrorContext{Agent: string(kind), AttemptedURL: path})
	}

	statuses := i.registry.List(ctx)
	for _, status := range statuses {
		if status.Kind == kind {
			return httpapi.InstallResult{Installed: true, Version: status.Version, Changed: false}, nil
		}
	}
	return httpapi.InstallResult{Installed: true, Changed: false}, nil
}
