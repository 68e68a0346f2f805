// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package converter defines the contract every per-agent converter
// package (claude, codex, opencode, amp) implements: pure functions
// translating a universal.Message into an agent's native input, and
// translating one native output line into zero or more universal
// events.
//
// Converters never drop information. A native line that cannot be
// interpreted produces a single universal.EventUnparsed event carrying
// the raw bytes and the parse error rather than being discarded; a
// universal construct the target agent lacks capability for is
// rejected before any backend I/O (see [Converter.ToNative]).
package converter

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/agentcore/universal"
)

// Converter is implemented once per agent kind.
type Converter interface {
	// ToNative renders a universal message as the agent's native
	// prompt body. Returns UnsupportedCapability if msg uses a
	// capability the agent lacks.
	ToNative(msg universal.Message) ([]byte, error)

	// FromNative parses one native output line (already split on
	// whatever framing the transport uses — newline for subprocess
	// JSONL, one SSE data: payload for server agents) into zero or
	// more universal events. Never returns an error: unparseable
	// input becomes a single EventUnparsed event.
	FromNative(line []byte) []PartialEvent

	// NativeSessionID extracts the agent's own session/thread
	// identifier from a native line, if present.
	NativeSessionID(line []byte) (string, bool)
}

// PartialEvent is the kind/payload pair a converter produces for one
// native line; eventlog.Log.Append fills in id, timestamp, sessionId,
// and agent when sessioncore appends it to the event log.
type PartialEvent struct {
	Kind            universal.EventKind
	Message         *universal.MessageData
	Started         *universal.StartedData
	TurnComplete    *universal.TurnCompleteData
	Error           *universal.ErrorData
	QuestionAsked   *universal.QuestionAskedData
	PermissionAsked *universal.PermissionAskedData
	Unparsed        *universal.UnparsedData
}

// Populate copies p onto event's variant fields.
func (p PartialEvent) Populate(event *universal.Event) {
	event.Kind = p.Kind
	event.Message = p.Message
	event.Started = p.Started
	event.TurnComplete = p.TurnComplete
	event.Error = p.Error
	event.QuestionAsked = p.QuestionAsked
	event.PermissionAsked = p.PermissionAsked
	event.Unparsed = p.Unparsed
}

// Unparsed builds the standard fallback PartialEvent for a line that
// failed to parse. Every converter uses this so that the "one universal
// event per native line" invariant holds even on garbage input.
func Unparsed(line []byte, err error) PartialEvent {
	return PartialEvent{
		Kind: universal.EventUnparsed,
		Unparsed: &universal.UnparsedData{
			Raw:        append(json.RawMessage(nil), line...),
			ParseError: err.Error(),
		},
	}
}

// ExtractStringField extracts a string field from a JSON object
// without decoding the whole payload into a typed struct.
func ExtractStringField(data []byte, field string) (string, bool) {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false
	}
	raw, ok := parsed[field]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// ErrUnsupportedCapability is returned by ToNative when msg uses a
// capability the target agent's registry entry does not grant.
func ErrUnsupportedCapability(agent, capability string) error {
	return universal.NewError(universal.UnsupportedCapability,
		fmt.Sprintf("agent %q does not support %s", agent, capability)).
		WithContext(universal.ErrorContext{Agent: agent, Field: capability})
}
