// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"encoding/json"
	"io"

	"github.com/bureau-foundation/agentcore/universal"
)

// claudeStdio implements StdinWriter for Claude Code's persistent-stdin
// mode: user turns are plain newline-delimited text, while question and
// permission replies are framed as control_response JSON matching the
// control_request shape Claude emits on stdout.
type claudeStdio struct{}

func (claudeStdio) WriteSend(w io.Writer, native []byte) error {
	return writeLine(w, native)
}

func (claudeStdio) WriteQuestionReply(w io.Writer, requestID string, answers [][]string) error {
	// The reply is framed as ExitPlanMode's two-option Approve/Reject
	// decision: "allow" when the first sub-answer is "Approve", "deny"
	// otherwise. The selected labels themselves are not sent, so an
	// AskUserQuestion reply reaches Claude only as allow or deny.
	approved := len(answers) > 0 && len(answers[0]) > 0 && answers[0][0] == "Approve"
	payload, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID string `json:"request_id"`
		Response  struct {
			Behavior string `json:"behavior"`
		} `json:"response"`
	}{
		Type:      "control_response",
		RequestID: requestID,
		Response:  struct{ Behavior string `json:"behavior"` }{Behavior: behaviorFor(approved)},
	})
	if err != nil {
		return err
	}
	return writeLine(w, payload)
}

func behaviorFor(approved bool) string {
	if approved {
		return "allow"
	}
	return "deny"
}

func (claudeStdio) WriteQuestionReject(w io.Writer, requestID string) error {
	payload, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID string `json:"request_id"`
		Response  struct {
			Behavior string `json:"behavior"`
		} `json:"response"`
	}{Type: "control_response", RequestID: requestID, Response: struct{ Behavior string `json:"behavior"` }{Behavior: "deny"}})
	if err != nil {
		return err
	}
	return writeLine(w, payload)
}

func (claudeStdio) WritePermissionReply(w io.Writer, requestID string, reply universal.PermissionReply) error {
	behavior := "deny"
	if reply != universal.PermissionReject {
		behavior = "allow"
	}
	payload, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID string `json:"request_id"`
		Response  struct {
			Behavior         string `json:"behavior"`
			UpdatedPermissions bool `json:"updated_permissions,omitempty"`
		} `json:"response"`
	}{
		Type:      "control_response",
		RequestID: requestID,
		Response: struct {
			Behavior           string `json:"behavior"`
			UpdatedPermissions bool   `json:"updated_permissions,omitempty"`
		}{Behavior: behavior, UpdatedPermissions: reply == universal.PermissionAlways},
	})
	if err != nil {
		return err
	}
	return writeLine(w, payload)
}

// ClaudeStdio returns the StdinWriter for Claude Code.
func ClaudeStdio() StdinWriter { return claudeStdio{} }
