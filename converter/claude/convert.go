// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package claude converts between the universal schema and the Claude
// Code CLI's stream-json line protocol.
package claude

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/universal"
)

// Converter implements converter.Converter for Claude Code.
type Converter struct{}

// New returns a Claude converter.
func New() *Converter { return &Converter{} }

// ToNative renders msg as the plain-text user turn the driver writes to
// Claude's stdin. This text channel has no way to carry images or
// structured tool-result resubmissions, so those capabilities are
// rejected here rather than silently dropped.
func (c *Converter) ToNative(msg universal.Message) ([]byte, error) {
	if msg.HasImages() {
		return nil, converter.ErrUnsupportedCapability("claude", "images")
	}
	if len(msg.ToolResults) > 0 {
		return nil, converter.ErrUnsupportedCapability("claude", "toolResults")
	}

	var buf bytes.Buffer
	buf.WriteString(msg.Text)
	for _, f := range msg.Files {
		fmt.Fprintf(&buf, "\n\n[attached: %s]\n%s", f.Name, f.Content)
	}
	return buf.Bytes(), nil
}

// streamJSONEnvelope is the common envelope of every stream-json line.
type streamJSONEnvelope struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// FromNative parses one stream-json line into universal events.
func (c *Converter) FromNative(line []byte) []converter.PartialEvent {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	var envelope streamJSONEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	switch envelope.Type {
	case "system":
		return parseSystem(envelope.Subtype, line)
	case "assistant":
		return parseAssistant(envelope.Subtype, line)
	case "tool":
		return parseTool(envelope.Subtype, line)
	case "result":
		return parseResult(line)
	case "control_request":
		return parseControlRequest(line)
	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized stream-json type %q", envelope.Type))}
	}
}

func parseSystem(subtype string, line []byte) []converter.PartialEvent {
	if subtype == "init" {
		return []converter.PartialEvent{{Kind: universal.EventStarted, Started: &universal.StartedData{}}}
	}
	message, _ := converter.ExtractStringField(line, "message")
	return []converter.PartialEvent{{
		Kind:    universal.EventMessage,
		Message: &universal.MessageData{Role: "assistant", Passthrough: json.RawMessage(line), Text: message},
	}}
}

func parseAssistant(subtype string, line []byte) []converter.PartialEvent {
	switch subtype {
	case "text":
		text, _ := converter.ExtractStringField(line, "text")
		return []converter.PartialEvent{{
			Kind:    universal.EventMessage,
			Message: &universal.MessageData{Role: "assistant", Text: text},
		}}

	case "thinking":
		text, _ := converter.ExtractStringField(line, "thinking")
		return []converter.PartialEvent{{
			Kind:    universal.EventMessage,
			Message: &universal.MessageData{Role: "assistant", Reasoning: text},
		}}

	case "tool_use":
		var toolUse struct {
			ID    string          `json:"tool_use_id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(line, &toolUse); err != nil {
			return []converter.PartialEvent{converter.Unparsed(line, err)}
		}
		if toolUse.Name == "ExitPlanMode" {
			return []converter.PartialEvent{{
				Kind: universal.EventQuestionAsked,
				QuestionAsked: &universal.QuestionAskedData{
					RequestID: toolUse.ID,
					Prompt:    "Approve the proposed plan?",
					Questions: []universal.SubQuestion{{
						Question: "Approve the proposed plan?",
						Options:  []universal.QuestionOption{{Label: "Approve"}, {Label: "Reject"}},
					}},
				},
			}}
		}
		if toolUse.Name == "AskUserQuestion" {
			if question, ok := parseAskUserQuestion(toolUse.ID, toolUse.Input); ok {
				return []converter.PartialEvent{{Kind: universal.EventQuestionAsked, QuestionAsked: question}}
			}
		}
		return []converter.PartialEvent{{
			Kind: universal.EventMessage,
			Message: &universal.MessageData{
				Role:     "assistant",
				ToolCall: &universal.ToolCallData{ID: toolUse.ID, Name: toolUse.Name, Input: toolUse.Input},
			},
		}}

	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized assistant subtype %q", subtype))}
	}
}

// parseAskUserQuestion parses Claude's AskUserQuestion tool_use input,
// whose questions array can batch several related sub-questions into
// one round trip, each with its own options and select mode.
func parseAskUserQuestion(toolID string, input json.RawMessage) (*universal.QuestionAskedData, bool) {
	var payload struct {
		Questions []struct {
			Question    string `json:"question"`
			Header      string `json:"header,omitempty"`
			MultiSelect bool   `json:"multiSelect"`
			Options     []struct {
				Label       string `json:"label"`
				Description string `json:"description,omitempty"`
			} `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || len(payload.Questions) == 0 {
		return nil, false
	}

	questions := make([]universal.SubQuestion, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		options := make([]universal.QuestionOption, 0, len(q.Options))
		for _, o := range q.Options {
			opt := universal.QuestionOption{Label: o.Label}
			if o.Description != "" {
				opt.Metadata = map[string]string{"description": o.Description}
			}
			options = append(options, opt)
		}
		questions = append(questions, universal.SubQuestion{
			Question: q.Question, Header: q.Header, Options: options, MultiSelect: q.MultiSelect,
		})
	}

	return &universal.QuestionAskedData{
		RequestID: toolID,
		Prompt:    questions[0].Question,
		Questions: questions,
	}, true
}

func parseTool(subtype string, line []byte) []converter.PartialEvent {
	if subtype != "result" {
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized tool subtype %q", subtype))}
	}
	var result struct {
		ToolUseID string `json:"tool_use_id"`
		IsError   bool   `json:"is_error"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(line, &result); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}
	return []converter.PartialEvent{{
		Kind: universal.EventMessage,
		Message: &universal.MessageData{
			Role:       "tool",
			ToolResult: &universal.ToolResultData{ID: result.ToolUseID, IsError: result.IsError, Output: result.Content},
		},
	}}
}

func parseResult(line []byte) []converter.PartialEvent {
	var result struct {
		Subtype string `json:"subtype"`
		Error   string `json:"error,omitempty"`
	}
	json.Unmarshal(line, &result)

	if result.Subtype != "success" {
		return []converter.PartialEvent{
			{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{Reason: result.Subtype}},
			{Kind: universal.EventError, Error: &universal.ErrorData{
				Kind:    universal.AgentProcessExited,
				Message: result.Error,
			}},
		}
	}
	return []converter.PartialEvent{{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{Reason: "success"}}}
}

// parseControlRequest handles Claude's permission-check control channel,
// which arrives as a distinct control_request line rather than an
// assistant tool_use event when permissionMode requires confirmation.
func parseControlRequest(line []byte) []converter.PartialEvent {
	var req struct {
		RequestID string `json:"request_id"`
		Request   struct {
			Subtype   string          `json:"subtype"`
			ToolName  string          `json:"tool_name"`
			Input     json.RawMessage `json:"input"`
		} `json:"request"`
	}
	if err := json.Unmarshal(line, &req); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}
	if req.Request.Subtype != "can_use_tool" {
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized control_request subtype %q", req.Request.Subtype))}
	}
	return []converter.PartialEvent{{
		Kind: universal.EventPermissionAsked,
		PermissionAsked: &universal.PermissionAskedData{
			RequestID: req.RequestID,
			ToolName:  req.Request.ToolName,
			Arguments: req.Request.Input,
		},
	}}
}

// NativeSessionID extracts Claude's session_id, present on the init
// system event and echoed on every subsequent line.
func (c *Converter) NativeSessionID(line []byte) (string, bool) {
	id, ok := converter.ExtractStringField(line, "session_id")
	return id, ok && id != ""
}
