// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package universal

import (
	"encoding/json"
	"time"
)

// EventKind classifies a Event's payload variant.
type EventKind string

const (
	// EventMessage carries assistant output, possibly a delta of a
	// larger streamed response.
	EventMessage EventKind = "message"

	// EventStarted marks a session or turn becoming ready.
	EventStarted EventKind = "started"

	// EventTurnComplete marks the end of one send/response cycle.
	EventTurnComplete EventKind = "turnComplete"

	// EventError carries backend failure information.
	EventError EventKind = "error"

	// EventQuestionAsked surfaces an open question requiring a client reply.
	EventQuestionAsked EventKind = "questionAsked"

	// EventPermissionAsked surfaces an open permission prompt requiring a client reply.
	EventPermissionAsked EventKind = "permissionAsked"

	// EventUnparsed carries a native payload the converter could not
	// interpret, plus the parse error. Sessions never terminate on this.
	EventUnparsed EventKind = "unparsed"
)

// Event is one entry in a session's event log. Ids are monotonic and
// gap-free per session, starting at 1.
type Event struct {
	ID             uint64    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"sessionId"`
	Agent          string    `json:"agent"`
	AgentSessionID string    `json:"agentSessionId,omitempty"`
	Kind           EventKind `json:"kind"`

	Message         *MessageData         `json:"message,omitempty"`
	Started         *StartedData         `json:"started,omitempty"`
	TurnComplete    *TurnCompleteData    `json:"turnComplete,omitempty"`
	Error           *ErrorData           `json:"error,omitempty"`
	QuestionAsked   *QuestionAskedData   `json:"questionAsked,omitempty"`
	PermissionAsked *PermissionAskedData `json:"permissionAsked,omitempty"`
	Unparsed        *UnparsedData        `json:"unparsed,omitempty"`
}

// MessageData is the payload of an EventMessage.
type MessageData struct {
	// Role is "assistant" or "tool"; user turns are not re-emitted as events.
	Role string `json:"role"`

	Text string `json:"text,omitempty"`

	// Delta marks this as an incremental chunk of a larger response
	// rather than a complete message.
	Delta bool `json:"delta,omitempty"`

	// ToolCall is set when the message represents a tool invocation
	// proposal rather than text.
	ToolCall *ToolCallData `json:"toolCall,omitempty"`

	// ToolResult is set when the message represents a tool's output.
	ToolResult *ToolResultData `json:"toolResult,omitempty"`

	// Reasoning carries chain-of-thought content for agents whose
	// capability set includes it.
	Reasoning string `json:"reasoning,omitempty"`

	// Passthrough preserves a native construct the universal schema
	// cannot represent (e.g., a capability the target agent lacks),
	// so conversion never silently discards information.
	Passthrough json.RawMessage `json:"passthrough,omitempty"`
}

// ToolCallData describes a proposed or executed tool invocation.
type ToolCallData struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResultData carries a tool's output back as an assistant-visible event.
type ToolResultData struct {
	ID      string `json:"id"`
	IsError bool   `json:"isError,omitempty"`
	Output  string `json:"output,omitempty"`
}

// StartedData marks session or turn readiness.
type StartedData struct {
	AgentVersion string `json:"agentVersion,omitempty"`
}

// TurnCompleteData marks that the backend has finished responding to
// the most recent send.
type TurnCompleteData struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorData carries a Error rendered as an event, for cases where the
// failure surfaces asynchronously from a running backend rather than
// as a synchronous operation response.
type ErrorData struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Context ErrorContext `json:"context,omitempty"`
}

// QuestionAskedData mirrors a QuestionRequest onto the event log. Most
// agents ask one question at a time (Questions has a single element);
// Claude's AskUserQuestion tool and OpenCode's question requests can
// batch several related sub-questions into one round trip, each with
// its own option list and select mode.
type QuestionAskedData struct {
	RequestID string        `json:"requestId"`
	Prompt    string        `json:"prompt"`
	Questions []SubQuestion `json:"questions"`
}

// SubQuestion is one question within a QuestionAskedData batch.
type SubQuestion struct {
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	Options     []QuestionOption `json:"options"`
	MultiSelect bool             `json:"multiSelect,omitempty"`
}

// PermissionAskedData mirrors a PermissionRequest onto the event log.
type PermissionAskedData struct {
	RequestID string          `json:"requestId"`
	ToolName  string          `json:"toolName"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Scope     string          `json:"scope,omitempty"`
}

// UnparsedData carries a native payload the converter failed to interpret.
type UnparsedData struct {
	Raw       json.RawMessage `json:"raw"`
	ParseError string         `json:"parseError"`
}
