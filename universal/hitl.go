// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package universal

import "encoding/json"

// QuestionOption is one selectable answer to a QuestionRequest.
type QuestionOption struct {
	Label    string            `json:"label"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QuestionRequest is an open question raised by an agent, awaiting a
// client reply. Claude's plan-approval flow ("ExitPlanMode") is
// represented as a QuestionRequest with two options: Approve, Reject.
type QuestionRequest struct {
	RequestID string `json:"requestId"`
	Prompt    string `json:"prompt"`

	// Options holds one slice of choices per sub-question. A
	// single-question prompt has len(Options) == 1.
	Options [][]QuestionOption `json:"options"`

	MultiSelect   bool `json:"multiSelect,omitempty"`
	MultiQuestion bool `json:"multiQuestion,omitempty"`
}

// QuestionReply is the client's answer to a QuestionRequest: one slice
// of selected option labels per sub-question, in the same order as
// QuestionRequest.Options.
type QuestionReply struct {
	Answers [][]string `json:"answers"`
}

// PermissionRequest is an open tool-use permission prompt.
type PermissionRequest struct {
	RequestID string          `json:"requestId"`
	ToolName  string          `json:"toolName"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Scope     string          `json:"scope,omitempty"`
}

// PermissionReply is the client's decision on a PermissionRequest.
type PermissionReply string

const (
	PermissionOnce   PermissionReply = "once"
	PermissionAlways PermissionReply = "always"
	PermissionReject PermissionReply = "reject"
)

// Valid reports whether r is one of the three allowed reply values.
func (r PermissionReply) Valid() bool {
	switch r {
	case PermissionOnce, PermissionAlways, PermissionReject:
		return true
	default:
		return false
	}
}
