// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"context"

	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/universal"
)

// Spec describes the session a Driver is asked to start.
type Spec struct {
	SessionID       string
	AgentMode       string
	PermissionMode  string
	Model           string
	Variant         string
	Prompt          string // unused once the session is Ready; kept for agents with no persistent-stdin mode
	WorkingDirectory string
	CredentialEnv   map[string]string
}

// UpdateFields is the subset of mutable session fields a client asked
// to change. A nil pointer means "no change requested" for that field,
// distinguishing it from an explicit empty string.
type UpdateFields struct {
	AgentMode      *string
	PermissionMode *string
	Model          *string
	Variant        *string
}

// Driver is the transport adapter owning agent I/O for one session.
// Every operation but Events and Health returns once the request has
// been handed to the backend, not once any resulting turn completes.
type Driver interface {
	// Start begins the backend for this session. May return before the
	// agent's native session id is known; it is discovered later via Events.
	Start(ctx context.Context) error

	// Send pushes a user turn.
	Send(ctx context.Context, msg universal.Message) error

	// AnswerQuestion forwards a question reply to the backend's native protocol.
	AnswerQuestion(ctx context.Context, requestID string, answers [][]string) error

	// RejectQuestion forwards a question rejection.
	RejectQuestion(ctx context.Context, requestID string) error

	// ReplyPermission forwards a permission decision.
	ReplyPermission(ctx context.Context, requestID string, reply universal.PermissionReply) error

	// Update attempts to mutate model/variant/agentMode/permissionMode.
	// Callers are expected to have already applied the §4.6 constraint
	// checks (sessionmanager); Update itself just tries to apply fields
	// the driver's transport can still change live.
	Update(ctx context.Context, fields UpdateFields) error

	// Stop terminates the backend for this session. Idempotent.
	Stop(ctx context.Context, reason string) error

	// Events returns the channel of converted events. Closed once the
	// backend has fully exited and no more events will arrive.
	Events() <-chan converter.PartialEvent

	// AgentSessionID returns the native session id once observed, or
	// "" if not yet known.
	AgentSessionID() string

	// Health reports whether the backend is currently responsive.
	Health(ctx context.Context) error
}
