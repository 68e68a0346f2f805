// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentdriver implements the transport-specific runners that
// speak to agent backends: [SubprocessDriver] spawns one child process
// per session (Claude, Codex, Amp); [ServerManager] plus its per-session
// handle share one long-running HTTP/SSE server across every session
// of a kind (OpenCode).
//
// Both driver kinds satisfy the same [Driver] interface, so
// sessioncore never branches on transport — it asks the registry which
// kind of driver a session needs and gets one back.
package agentdriver
