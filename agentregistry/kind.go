// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentregistry

// Kind identifies a supported agent backend.
type Kind string

const (
	Claude   Kind = "claude"
	Codex    Kind = "codex"
	OpenCode Kind = "opencode"
	Amp      Kind = "amp"
)

// Transport identifies how a Kind's process is run.
type Transport string

const (
	// TransportSubprocess spawns one child process per session.
	TransportSubprocess Transport = "subprocess"

	// TransportServer shares one long-running HTTP/SSE server across
	// every session of the kind.
	TransportServer Transport = "server"
)

// ModeFetchStrategy describes how supported agent-modes are discovered.
type ModeFetchStrategy string

const (
	ModeFetchStatic ModeFetchStrategy = "static"
	ModeFetchLive   ModeFetchStrategy = "live"
)

// ModelFetchStrategy describes how the set of available models is discovered.
type ModelFetchStrategy string

const (
	ModelFetchStatic  ModelFetchStrategy = "static"
	ModelFetchLive    ModelFetchStrategy = "live"
	ModelFetchUnknown ModelFetchStrategy = "unknown"
)

// Capabilities is the bitmap of features a Kind supports.
type Capabilities struct {
	PlanMode        bool
	Permissions     bool
	Questions       bool
	ToolCalls       bool
	ToolResults     bool
	TextMessages    bool
	Images          bool
	FileAttachments bool
	LifecycleEvents bool
	ErrorEvents     bool
	Reasoning       bool
	CommandExecution bool
	FileChanges     bool
	MCPTools        bool
	StreamingDeltas bool

	// ModelMutableAfterSpawn is false for agents whose model can only
	// be set at process spawn (Claude, Amp); true for agents whose
	// backend accepts a model change mid-thread (Codex, OpenCode).
	ModelMutableAfterSpawn bool

	// VariantSupported is true only for agents with a variant axis
	// orthogonal to model (OpenCode).
	VariantSupported bool
}

// Mode is one entry in an agent's supported-modes list.
type Mode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Entry is one static catalogue row.
type Entry struct {
	Kind         Kind
	Transport    Transport
	Capabilities Capabilities

	ModeFetch     ModeFetchStrategy
	StaticModes   []Mode
	ModelFetch    ModelFetchStrategy
	StaticModels  []string

	// CredentialEnv lists the host environment variable names to
	// inject when spawning this agent (e.g. ANTHROPIC_API_KEY).
	CredentialEnv []string

	// BinaryName is the executable looked up on PATH / the configured
	// install directory.
	BinaryName string

	// DefaultPermissionModes lists the permission mode ids this agent
	// recognizes, drawn from "default", "plan", "bypass" (Amp has no
	// "plan").
	DefaultPermissionModes []string
}
