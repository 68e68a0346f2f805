// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package amp converts between the universal schema and the Amp CLI's
// JSONL event protocol. Amp has no streaming-delta capability: each
// assistant turn arrives as one complete message line.
package amp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/universal"
)

// Converter implements converter.Converter for Amp.
type Converter struct{}

// New returns an Amp converter.
func New() *Converter { return &Converter{} }

// ToNative renders msg as Amp's JSON turn payload. Amp lacks image
// support in its CLI protocol.
func (c *Converter) ToNative(msg universal.Message) ([]byte, error) {
	if msg.HasImages() {
		return nil, converter.ErrUnsupportedCapability("amp", "images")
	}

	payload := struct {
		Message string                     `json:"message"`
		Files   []universal.FileAttachment `json:"files,omitempty"`
	}{Message: msg.Text, Files: msg.Files}

	return json.Marshal(payload)
}

type ampEvent struct {
	Event string `json:"event"`
}

// FromNative parses one Amp JSONL event line.
func (c *Converter) FromNative(line []byte) []converter.PartialEvent {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	var event ampEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	switch event.Event {
	case "session_start":
		return []converter.PartialEvent{{Kind: universal.EventStarted, Started: &universal.StartedData{}}}

	case "message":
		text, _ := converter.ExtractStringField(line, "content")
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{Role: "assistant", Text: text}}}

	case "tool_call":
		var call struct {
			ID    string          `json:"id"`
			Tool  string          `json:"tool"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(line, &call); err != nil {
			return []converter.PartialEvent{converter.Unparsed(line, err)}
		}
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{
			Role:     "assistant",
			ToolCall: &universal.ToolCallData{ID: call.ID, Name: call.Tool, Input: call.Input},
		}}}

	case "permission_request":
		var req struct {
			ID    string          `json:"id"`
			Tool  string          `json:"tool"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			return []converter.PartialEvent{converter.Unparsed(line, err)}
		}
		return []converter.PartialEvent{{
			Kind: universal.EventPermissionAsked,
			PermissionAsked: &universal.PermissionAskedData{RequestID: req.ID, ToolName: req.Tool, Arguments: req.Input},
		}}

	case "question":
		var q struct {
			ID      string   `json:"id"`
			Prompt  string   `json:"prompt"`
			Choices []string `json:"choices"`
		}
		if err := json.Unmarshal(line, &q); err != nil {
			return []converter.PartialEvent{converter.Unparsed(line, err)}
		}
		options := make([]universal.QuestionOption, 0, len(q.Choices))
		for _, choice := range q.Choices {
			options = append(options, universal.QuestionOption{Label: choice})
		}
		return []converter.PartialEvent{{
			Kind: universal.EventQuestionAsked,
			QuestionAsked: &universal.QuestionAskedData{
				RequestID: q.ID,
				Prompt:    q.Prompt,
				Questions: []universal.SubQuestion{{Question: q.Prompt, Options: options}},
			},
		}}

	case "turn_complete":
		return []converter.PartialEvent{{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{Reason: "success"}}}

	case "error":
		msg, _ := converter.ExtractStringField(line, "message")
		return []converter.PartialEvent{{Kind: universal.EventError, Error: &universal.ErrorData{Kind: universal.AgentProcessExited, Message: msg}}}

	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized amp event %q", event.Event))}
	}
}

// NativeSessionID extracts Amp's session_id.
func (c *Converter) NativeSessionID(line []byte) (string, bool) {
	id, ok := converter.ExtractStringField(line, "session_id")
	return id, ok && id != ""
}
