// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package amp

import (
	"testing"

	"github.com/bureau-foundation/agentcore/universal"
)

func TestFromNative_SessionStart(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{"event":"session_start","session_id":"amp-1"}`))
	if len(events) != 1 || events[0].Kind != universal.EventStarted {
		t.Fatalf("expected EventStarted, got %+v", events)
	}
}

func TestFromNative_Message(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{"event":"message","content":"hi there"}`))
	if len(events) != 1 || events[0].Kind != universal.EventMessage {
		t.Fatalf("expected EventMessage, got %+v", events)
	}
	if events[0].Message.Text != "hi there" {
		t.Errorf("expected text 'hi there', got %q", events[0].Message.Text)
	}
}

func TestFromNative_Question(t *testing.T) {
	c := New()
	line := []byte(`{"event":"question","id":"q1","prompt":"pick","choices":["A","B"]}`)
	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventQuestionAsked {
		t.Fatalf("expected EventQuestionAsked, got %+v", events)
	}
}

func TestFromNative_UnknownEvent(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{"event":"unheard_of"}`))
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

func TestNativeSessionID(t *testing.T) {
	c := New()
	id, ok := c.NativeSessionID([]byte(`{"event":"session_start","session_id":"amp-7"}`))
	if !ok || id != "amp-7" {
		t.Errorf("expected amp-7, got %q ok=%v", id, ok)
	}
}
