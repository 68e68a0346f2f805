// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package opencode converts between the universal schema and the
// OpenCode server's SSE event protocol. Unlike the subprocess agents,
// every native line here is one SSE event payload already demuxed to
// a single session by the shared-server driver.
package opencode

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/universal"
)

// Converter implements converter.Converter for OpenCode.
type Converter struct{}

// New returns an OpenCode converter.
func New() *Converter { return &Converter{} }

// ToNative renders msg as the JSON body posted to the server's prompt
// endpoint. OpenCode's capability set covers every universal
// construct, so ToNative never rejects a message.
func (c *Converter) ToNative(msg universal.Message) ([]byte, error) {
	payload := struct {
		Text        string                        `json:"text"`
		Images      []universal.ImageAttachment   `json:"images,omitempty"`
		Files       []universal.FileAttachment    `json:"files,omitempty"`
		ToolResults []universal.ToolResultPayload `json:"toolResults,omitempty"`
	}{Text: msg.Text, Images: msg.Images, Files: msg.Files, ToolResults: msg.ToolResults}

	return json.Marshal(payload)
}

type serverEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionID"`
}

// FromNative parses one server-sent event payload, already scoped to
// this session by the ServerDriver's demuxer.
func (c *Converter) FromNative(line []byte) []converter.PartialEvent {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	var event serverEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	switch event.Type {
	case "session.created", "session.idle":
		return []converter.PartialEvent{{Kind: universal.EventStarted, Started: &universal.StartedData{}}}

	case "message.part.updated":
		return parseMessagePart(line)

	case "message.completed":
		return []converter.PartialEvent{{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{Reason: "success"}}}

	case "session.error":
		msg, _ := converter.ExtractStringField(line, "message")
		return []converter.PartialEvent{{Kind: universal.EventError, Error: &universal.ErrorData{Kind: universal.AgentProcessExited, Message: msg}}}

	case "permission.requested":
		return parsePermissionRequested(line)

	case "question.asked":
		return parseQuestionAsked(line)

	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized opencode event type %q", event.Type))}
	}
}

func parseMessagePart(line []byte) []converter.PartialEvent {
	var part struct {
		Part struct {
			Type  string          `json:"type"`
			Text  string          `json:"text,omitempty"`
			Tool  string          `json:"tool,omitempty"`
			CallID string         `json:"callID,omitempty"`
			Input json.RawMessage `json:"input,omitempty"`
			Output string         `json:"output,omitempty"`
		} `json:"part"`
	}
	if err := json.Unmarshal(line, &part); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	switch part.Part.Type {
	case "text":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{Role: "assistant", Text: part.Part.Text, Delta: true}}}
	case "reasoning":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{Role: "assistant", Reasoning: part.Part.Text}}}
	case "tool":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{
			Role:     "assistant",
			ToolCall: &universal.ToolCallData{ID: part.Part.CallID, Name: part.Part.Tool, Input: part.Part.Input},
		}}}
	case "tool-result":
		return []converter.PartialEvent{{Kind: universal.EventMessage, Message: &universal.MessageData{
			Role:       "tool",
			ToolResult: &universal.ToolResultData{ID: part.Part.CallID, Output: part.Part.Output},
		}}}
	default:
		return []converter.PartialEvent{converter.Unparsed(line, fmt.Errorf("unrecognized opencode part type %q", part.Part.Type))}
	}
}

func parsePermissionRequested(line []byte) []converter.PartialEvent {
	var req struct {
		RequestID string          `json:"requestID"`
		Tool      string          `json:"tool"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(line, &req); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}
	return []converter.PartialEvent{{
		Kind: universal.EventPermissionAsked,
		PermissionAsked: &universal.PermissionAskedData{
			RequestID: req.RequestID, ToolName: req.Tool, Arguments: req.Arguments,
		},
	}}
}

// parseQuestionAsked parses OpenCode's question.asked event, whose
// questions array can batch several related sub-questions into one
// round trip, each with its own options and select mode.
func parseQuestionAsked(line []byte) []converter.PartialEvent {
	var req struct {
		RequestID string `json:"requestID"`
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
	if err := json.Unmarshal(line, &req); err != nil {
		return []converter.PartialEvent{converter.Unparsed(line, err)}
	}

	questions := make([]universal.SubQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
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

	var prompt string
	if len(questions) > 0 {
		prompt = questions[0].Question
	}

	return []converter.PartialEvent{{
		Kind: universal.EventQuestionAsked,
		QuestionAsked: &universal.QuestionAskedData{
			RequestID: req.RequestID, Prompt: prompt, Questions: questions,
		},
	}}
}

// NativeSessionID extracts OpenCode's sessionID.
func (c *Converter) NativeSessionID(line []byte) (string, bool) {
	id, ok := converter.ExtractStringField(line, "sessionID")
	return id, ok && id != ""
}
