// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codex converts between the universal schema and the Codex
// CLI's JSONL event protocol.
package codex

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/universal"
)

// Converter implements converter.Converter for Codex.
type Converter struct{}

// New returns a Codex converter.
func New() *Converter { return &Converter{} }

// ToNative renders msg as the JSON body of a Codex "user_input" op.
// Codex has no image or question capability, so images are rejected;
// unlike Claude, Codex accepts tool results resubmitted on the next
// turn, so ToolResults pass through as a dedicated field.
func (c *Converter) ToNative(msg universal.Message) ([]byte, error) {
	if msg.HasImages() {
		return nil, converter.ErrUnsupportedCapability("codex", "images")
	}

	payload := struct {
		Op          string                        `json:"op"`
		Text        string                        `json:"text"`
		Files       []universal.FileAttachment    `json:"files,omitempty"`
		ToolResults []universal.ToolResultPayload `json:"tool_results,omitempty"`
	}{Op: "user_input", Text: msg.Text, Files: msg.Files, ToolResults: msg.ToolResults}

	return json.Marshal(payload)
}

type codexEvent struct {
	Type      string `json:"type"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// FromNative parses one Codex JSONL event line.
func (c *Converter) FromNative(line []byte) []converter.PartialEvent {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	var event codexEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	switch event.Type {
	case "thread.started":
		return []converter.PartialEvent{{Kind: universal.EventStarted, Started: &universal.StartedData{}}}

	case "item.completed":
		return parseItemCompleted(line)

	case "item.delta":
		text, _ := converter.ExtractStringField(line, "delta")
		return []converter.PartialEvent{{
			Kind:    universal.EventMessage,
			Message: &universal.MessageData{Role: "assistant", Text: text, Delta: true},
		}}

	case "turn.completed":
		return []converter.PartialEvent{{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{Reason: "success"}}}

	case "turn.failed":
		msg, _ := converter.ExtractStringField(line, "message")
		return []converter.PartialEvent{
			{Kind: universal.EventError, Error: &universal.ErrorData{Kind: universal.AgentProcessExited, Message: msg}},
			{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{Reason: "failed"}},
		}

	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized codex event type %q", event.Type))}
	}
}

func parseItemCompleted(line []byte) []converter.PartialEvent {
	var item struct {
		Item struct {
			Type    string          `json:"type"`
			Text    string          `json:"text,omitempty"`
			Command string          `json:"command,omitempty"`
			CallID  string          `json:"call_id,omitempty"`
			Output  string          `json:"output,omitempty"`
			Input   json.RawMessage `json:"input,omitempty"`
		} `json:"item"`
	}
	if err := json.Unmarshal(line, &item); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	switch item.Item.Type {
	case "agent_message":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{Role: "assistant", Text: item.Item.Text}}}
	case "reasoning":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{Role: "assistant", Reasoning: item.Item.Text}}}
	case "command_execution":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{
			Role:     "assistant",
			ToolCall: &universal.ToolCallData{ID: item.Item.CallID, Name: "exec", Input: item.Item.Input},
		}}}
	case "function_call_output":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{
			Role:       "tool",
			ToolResult: &universal.ToolResultData{ID: item.Item.CallID, Output: item.Item.Output},
		}}}
	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized codex item type %q", item.Item.Type))}
	}
}

// NativeSessionID extracts Codex's thread_id.
func (c *Converter) NativeSessionID(line []byte) (string, bool) {
	id, ok := converter.ExtractStringField(line, "thread_id")
	return id, ok && id != ""
}
