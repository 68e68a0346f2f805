// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package claude

import (
	"testing"

	"github.com/bureau-foundation/agentcore/universal"
)

func TestFromNative_AssistantText(t *testing.T) {
	c := New()
	line := []byte(`{"type":"assistant","subtype":"text","text":"hello there","session_id":"sess-1"}`)

	events := c.FromNative(line)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Kind != universal.EventMessage {
		t.Fatalf("expected EventMessage, got %s", events[0].Kind)
	}
	if events[0].Message.Text != "hello there" {
		t.Errorf("expected text %q, got %q", "hello there", events[0].Message.Text)
	}
}

func TestFromNative_ExitPlanModeBecomesQuestion(t *testing.T) {
	c := New()
	line := []byte(`{"type":"assistant","subtype":"tool_use","tool_use_id":"t1","name":"ExitPlanMode","input":{}}`)

	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventQuestionAsked {
		t.Fatalf("expected a single QuestionAsked event, got %+v", events)
	}
	if events[0].QuestionAsked.RequestID != "t1" {
		t.Errorf("expected requestId t1, got %s", events[0].QuestionAsked.RequestID)
	}
	if len(events[0].QuestionAsked.Questions) != 1 || len(events[0].QuestionAsked.Questions[0].Options) != 2 {
		t.Errorf("expected 1 question with 2 options (Approve/Reject), got %+v", events[0].QuestionAsked.Questions)
	}
}

func TestFromNative_AskUserQuestionBatchesSubQuestions(t *testing.T) {
	c := New()
	line := []byte(`{"type":"assistant","subtype":"tool_use","tool_use_id":"t2","name":"AskUserQuestion","input":{
		"questions":[
			{"question":"Which database?","header":"Database","multiSelect":false,"options":[{"label":"Postgres","description":"relational"},{"label":"SQLite"}]},
			{"question":"Which regions?","header":"Regions","multiSelect":true,"options":[{"label":"us-east"},{"label":"eu-west"}]}
		]
	}}`)

	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventQuestionAsked {
		t.Fatalf("expected a single QuestionAsked event, got %+v", events)
	}
	q := events[0].QuestionAsked
	if q.RequestID != "t2" {
		t.Errorf("expected requestId t2, got %s", q.RequestID)
	}
	if len(q.Questions) != 2 {
		t.Fatalf("expected 2 sub-questions, got %d", len(q.Questions))
	}
	if q.Questions[0].Question != "Which database?" || len(q.Questions[0].Options) != 2 {
		t.Errorf("unexpected first sub-question: %+v", q.Questions[0])
	}
	if q.Questions[0].Options[0].Metadata["description"] != "relational" {
		t.Errorf("expected option description to carry through metadata, got %+v", q.Questions[0].Options[0])
	}
	if !q.Questions[1].MultiSelect {
		t.Errorf("expected second sub-question to be multiSelect")
	}
}

func TestFromNative_MalformedLineBecomesUnparsed(t *testing.T) {
	c := New()
	line := []byte(`not json at all`)

	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventUnparsed {
		t.Fatalf("expected a single Unparsed event, got %+v", events)
	}
	if events[0].Unparsed.ParseError == "" {
		t.Error("expected a non-empty parse error")
	}
}

func TestFromNative_UnknownTopLevelTypeBecomesUnparsed(t *testing.T) {
	c := New()
	line := []byte(`{"type":"something_new"}`)

	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventUnparsed {
		t.Fatalf("expected Unparsed for unrecognized type, got %+v", events)
	}
}

func TestFromNative_EmptyLineProducesNoEvents(t *testing.T) {
	c := New()
	if events := c.FromNative([]byte("   ")); events != nil {
		t.Errorf("expected nil for blank line, got %+v", events)
	}
}

func TestToNative_RejectsImages(t *testing.T) {
	c := New()
	msg := universal.Message{Text: "hi", Images: []universal.ImageAttachment{{MimeType: "image/png", Data: "xx"}}}

	_, err := c.ToNative(msg)
	if err == nil {
		t.Fatal("expected UnsupportedCapability error for images")
	}
}

func TestToNative_PlainText(t *testing.T) {
	c := New()
	out, err := c.ToNative(universal.Message{Text: "print hello"})
	if err != nil {
		t.Fatalf("ToNative failed: %v", err)
	}
	if string(out) != "print hello" {
		t.Errorf("expected %q, got %q", "print hello", out)
	}
}

func TestNativeSessionID(t *testing.T) {
	c := New()
	id, ok := c.NativeSessionID([]byte(`{"type":"system","subtype":"init","session_id":"abc-123"}`))
	if !ok || id != "abc-123" {
		t.Errorf("expected session id abc-123, got %q ok=%v", id, ok)
	}

	_, ok = c.NativeSessionID([]byte(`{"type":"assistant"}`))
	if ok {
		t.Error("expected ok=false when session_id is absent")
	}
}

func TestParseResult_FailureEmitsErrorAndTurnComplete(t *testing.T) {
	c := New()
	line := []byte(`{"type":"result","subtype":"error_max_turns","error":"exceeded max turns"}`)

	events := c.FromNative(line)
	if len(events) != 2 {
		t.Fatalf("expected 2 events (turnComplete + error), got %d", len(events))
	}
	if events[0].Kind != universal.EventTurnComplete || events[1].Kind != universal.EventError {
		t.Errorf("unexpected event kinds: %s, %s", events[0].Kind, events[1].Kind)
	}
}
