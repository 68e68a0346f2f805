// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codex

import (
	"testing"

	"github.com/bureau-foundation/agentcore/universal"
)

func TestFromNative_ThreadStarted(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{"type":"thread.started","thread_id":"th-1"}`))
	if len(events) != 1 || events[0].Kind != universal.EventStarted {
		t.Fatalf("expected EventStarted, got %+v", events)
	}
}

func TestFromNative_AgentMessage(t *testing.T) {
	c := New()
	line := []byte(`{"type":"item.completed","item":{"type":"agent_message","text":"done"}}`)
	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventMessage {
		t.Fatalf("expected EventMessage, got %+v", events)
	}
	if events[0].Message.Text != "done" {
		t.Errorf("expected text 'done', got %q", events[0].Message.Text)
	}
}

func TestFromNative_TurnFailedEmitsErrorAndTurnComplete(t *testing.T) {
	c := New()
	line := []byte(`{"type":"turn.failed","message":"rate limited"}`)
	events := c.FromNative(line)
	if len(events) != 2 || events[0].Kind != universal.EventError || events[1].Kind != universal.EventTurnComplete {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFromNative_MalformedJSON(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{not json`))
	if len(events) != 1 || events[0].Kind != universal.EventUnparsed {
		t.Fatalf("expected Unparsed, got %+v", events)
	}
}

func TestToNative_RejectsImages(t *testing.T) {
	c := New()
	_, err := c.ToNative(universal.Message{Images: []universal.ImageAttachment{{MimeType: "image/png", Data: "x"}}})
	if err == nil {
		t.Fatal("expected error for images")
	}
}

func TestToNative_IncludesToolResults(t *testing.T) {
	c := New()
	msg := universal.Message{
		Text:        "continue",
		ToolResults: []universal.ToolResultPayload{{ToolCallID: "c1", Output: "42"}},
	}
	out, err := c.ToNative(msg)
	if err != nil {
		t.Fatalf("ToNative failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty payload")
	}
}

func TestNativeSessionID(t *testing.T) {
	c := New()
	id, ok := c.NativeSessionID([]byte(`{"type":"thread.started","thread_id":"th-99"}`))
	if !ok || id != "th-99" {
		t.Errorf("expected th-99, got %q ok=%v", id, ok)
	}
}
