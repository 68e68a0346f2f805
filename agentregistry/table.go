// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentregistry

// staticTable is the built-in catalogue. New agents are added here as
// a new Kind constant plus a table entry plus a converter package;
// nothing else in the daemon branches on Kind directly.
var staticTable = map[Kind]Entry{
	Claude: {
		Kind:      Claude,
		Transport: TransportSubprocess,
		Capabilities: Capabilities{
			PlanMode: true, Permissions: true, Questions: true,
			ToolCalls: true, ToolResults: true, TextMessages: true,
			Images: true, FileAttachments: true, LifecycleEvents: true,
			ErrorEvents: true, Reasoning: true, CommandExecution: true,
			FileChanges: true, MCPTools: true, StreamingDeltas: true,
			ModelMutableAfterSpawn: false,
			VariantSupported:       false,
		},
		ModeFetch: ModeFetchStatic,
		StaticModes: []Mode{
			{ID: "build", Name: "Build", Description: "Full tool access"},
			{ID: "plan", Name: "Plan", Description: "Read-only planning"},
		},
		ModelFetch:             ModelFetchStatic,
		StaticModels:           []string{"sonnet", "opus", "haiku"},
		CredentialEnv:          []string{"ANTHROPIC_API_KEY"},
		BinaryName:             "claude",
		DefaultPermissionModes: []string{"default", "plan", "bypass"},
	},
	Codex: {
		Kind:      Codex,
		Transport: TransportSubprocess,
		Capabilities: Capabilities{
			PlanMode: true, Permissions: true, Questions: false,
			ToolCalls: true, ToolResults: true, TextMessages: true,
			Images: false, FileAttachments: false, LifecycleEvents: true,
			ErrorEvents: true, Reasoning: true, CommandExecution: true,
			FileChanges: true, MCPTools: false, StreamingDeltas: true,
			ModelMutableAfterSpawn: true,
			VariantSupported:       false,
		},
		ModeFetch: ModeFetchStatic,
		StaticModes: []Mode{
			{ID: "build", Name: "Build", Description: "Full tool access"},
			{ID: "ask", Name: "Ask", Description: "Question answering only"},
		},
		ModelFetch:             ModelFetchLive,
		CredentialEnv:          []string{"OPENAI_API_KEY"},
		BinaryName:             "codex",
		DefaultPermissionModes: []string{"default", "plan", "bypass"},
	},
	OpenCode: {
		Kind:      OpenCode,
		Transport: TransportServer,
		Capabilities: Capabilities{
			PlanMode: true, Permissions: true, Questions: true,
			ToolCalls: true, ToolResults: true, TextMessages: true,
			Images: true, FileAttachments: true, LifecycleEvents: true,
			ErrorEvents: true, Reasoning: true, CommandExecution: true,
			FileChanges: true, MCPTools: true, StreamingDeltas: true,
			ModelMutableAfterSpawn: true,
			VariantSupported:       true,
		},
		ModeFetch: ModeFetchLive,
		StaticModes: []Mode{
			{ID: "build", Name: "Build", Description: "Full tool access"},
			{ID: "plan", Name: "Plan", Description: "Read-only planning"},
		},
		ModelFetch:             ModelFetchLive,
		CredentialEnv:          []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY"},
		BinaryName:             "opencode",
		DefaultPermissionModes: []string{"default", "plan", "bypass"},
	},
	Amp: {
		Kind:      Amp,
		Transport: TransportSubprocess,
		Capabilities: Capabilities{
			PlanMode: false, Permissions: true, Questions: true,
			ToolCalls: true, ToolResults: true, TextMessages: true,
			Images: false, FileAttachments: true, LifecycleEvents: true,
			ErrorEvents: true, Reasoning: false, CommandExecution: true,
			FileChanges: true, MCPTools: true, StreamingDeltas: false,
			ModelMutableAfterSpawn: false,
			VariantSupported:       false,
		},
		ModeFetch: ModeFetchStatic,
		StaticModes: []Mode{
			{ID: "build", Name: "Build", Description: "Full tool access"},
		},
		ModelFetch:             ModelFetchStatic,
		StaticModels:           []string{"default"},
		CredentialEnv:          []string{"AMP_API_KEY"},
		BinaryName:             "amp",
		DefaultPermissionModes: []string{"default", "bypass"},
	},
}
