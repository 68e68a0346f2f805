// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentregistry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/universal"
)

// installCacheTTL bounds how long a queried version string is trusted
// before List re-queries the binary. Short enough to notice an
// in-place agent upgrade within one polling interval, long enough that
// List under load doesn't spawn a subprocess per call.
const installCacheTTL = 30 * time.Second

// LiveModeQuerier fetches an agent's modes or models from the agent
// itself rather than the static table. Implementations are supplied
// per Kind by the driver layer; a Kind with no querier registered
// falls back to its static list.
type LiveModeQuerier interface {
	Modes(ctx context.Context) ([]Mode, error)
	Models(ctx context.Context) ([]string, error)
}

// Registry is the immutable agent catalogue plus live installation
// status. Safe for concurrent use.
type Registry struct {
	binDir  string
	clock   clock.Clock
	queries map[Kind]LiveModeQuerier

	mu    sync.Mutex
	cache map[Kind]installStatus
}

type installStatus struct {
	installed bool
	version   string
	path      string
	checkedAt time.Time
}

// New constructs a Registry that looks up agent binaries under binDir.
func New(binDir string, clk clock.Clock) *Registry {
	return &Registry{
		binDir:  binDir,
		clock:   clk,
		queries: make(map[Kind]LiveModeQuerier),
		cache:   make(map[Kind]installStatus),
	}
}

// RegisterLiveQuerier attaches a live mode/model querier for kind.
// cmd/agentcored registers none, so every Kind is served its static
// list there.
func (r *Registry) RegisterLiveQuerier(kind Kind, q LiveModeQuerier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[kind] = q
}

// Kinds returns every catalogued Kind in a stable order.
func (r *Registry) Kinds() []Kind {
	return []Kind{Claude, Codex, OpenCode, Amp}
}

// Entry returns the static catalogue row for kind.
func (r *Registry) Entry(kind Kind) (Entry, bool) {
	e, ok := staticTable[kind]
	return e, ok
}

// AgentStatus is the installation status of one catalogued agent.
type AgentStatus struct {
	Kind      Kind   `json:"id"`
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
}

// List returns the full catalogue with installation status looked up
// at call time (subject to installCacheTTL).
func (r *Registry) List(ctx context.Context) []AgentStatus {
	kinds := r.Kinds()
	statuses := make([]AgentStatus, 0, len(kinds))
	for _, kind := range kinds {
		status := r.checkInstalled(ctx, kind)
		statuses = append(statuses, AgentStatus{
			Kind:      kind,
			Installed: status.installed,
			Version:   status.version,
			Path:      status.path,
		})
	}
	return statuses
}

func (r *Registry) checkInstalled(ctx context.Context, kind Kind) installStatus {
	r.mu.Lock()
	if cached, ok := r.cache[kind]; ok && r.clock.Now().Sub(cached.checkedAt) < installCacheTTL {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	entry, ok := staticTable[kind]
	if !ok {
		return installStatus{}
	}

	path := filepath.Join(r.binDir, entry.BinaryName)
	status := installStatus{checkedAt: r.clock.Now()}

	if info, err := os.Stat(path); err == nil && info.Mode()&0111 != 0 {
		status.installed = true
		status.path = path
		status.version = r.queryVersion(ctx, path)
	}

	r.mu.Lock()
	r.cache[kind] = status
	r.mu.Unlock()

	return status
}

func (r *Registry) queryVersion(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Capabilities returns the capability bitmap for kind, or an error if
// kind is unrecognized.
func (r *Registry) Capabilities(kind Kind) (Capabilities, error) {
	entry, ok := staticTable[kind]
	if !ok {
		return Capabilities{}, universal.NewError(universal.UnsupportedAgent, fmt.Sprintf("unknown agent %q", kind))
	}
	return entry.Capabilities, nil
}

// Modes returns the ordered mode list for kind: static entries merged
// with any live-queried entries, live winning on id conflict, errors
// falling back to static.
func (r *Registry) Modes(ctx context.Context, kind Kind) ([]Mode, error) {
	entry, ok := staticTable[kind]
	if !ok {
		return nil, universal.NewError(universal.UnsupportedAgent, fmt.Sprintf("unknown agent %q", kind))
	}

	if entry.ModeFetch != ModeFetchLive {
		return entry.StaticModes, nil
	}

	r.mu.Lock()
	querier := r.queries[kind]
	r.mu.Unlock()

	if querier == nil {
		return entry.StaticModes, nil
	}

	live, err := querier.Modes(ctx)
	if err != nil {
		return entry.StaticModes, nil
	}

	return mergeModes(entry.StaticModes, live), nil
}

func mergeModes(static, live []Mode) []Mode {
	merged := make([]Mode, 0, len(static)+len(live))
	seen := make(map[string]int, len(static))
	for _, m := range static {
		seen[m.ID] = len(merged)
		merged = append(merged, m)
	}
	for _, m := range live {
		if idx, ok := seen[m.ID]; ok {
			merged[idx] = m
			continue
		}
		seen[m.ID] = len(merged)
		merged = append(merged, m)
	}
	return merged
}

// NormalizeMode maps a client-supplied mode string to the canonical
// mode id for kind, or ModeNotSupported.
func (r *Registry) NormalizeMode(ctx context.Context, kind Kind, mode string) (string, error) {
	if mode == "" {
		mode = "build"
	}

	modes, err := r.Modes(ctx, kind)
	if err != nil {
		return "", err
	}

	for _, m := range modes {
		if m.ID == mode {
			return m.ID, nil
		}
	}

	return "", universal.NewError(universal.ModeNotSupported, fmt.Sprintf("agent %q has no mode %q", kind, mode)).
		WithContext(universal.ErrorContext{Agent: string(kind), Field: "agentMode"})
}

// NormalizePermissionMode maps a client-supplied permission mode
// string to the canonical id for kind, or ModeNotSupported.
func (r *Registry) NormalizePermissionMode(kind Kind, mode string) (string, error) {
	if mode == "" {
		mode = "default"
	}

	entry, ok := staticTable[kind]
	if !ok {
		return "", universal.NewError(universal.UnsupportedAgent, fmt.Sprintf("unknown agent %q", kind))
	}

	for _, m := range entry.DefaultPermissionModes {
		if m == mode {
			return m, nil
		}
	}

	return "", universal.NewError(universal.ModeNotSupported, fmt.Sprintf("agent %q has no permission mode %q", kind, mode)).
		WithContext(universal.ErrorContext{Agent: string(kind), Field: "permissionMode"})
}

// CredentialEnv builds the environment map to inject when spawning
// kind, drawing values from hostCredentials (typically os.Environ()
// filtered by the daemon's own launcher).
func (r *Registry) CredentialEnv(kind Kind, hostCredentials map[string]string) (map[string]string, error) {
	entry, ok := staticTable[kind]
	if !ok {
		return nil, universal.NewError(universal.UnsupportedAgent, fmt.Sprintf("unknown agent %q", kind))
	}

	env := make(map[string]string, len(entry.CredentialEnv))
	for _, name := range entry.CredentialEnv {
		if value, ok := hostCredentials[name]; ok {
			env[name] = value
		}
	}
	return env, nil
}
