// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package opencode

import (
	"testing"

	"github.com/bureau-foundation/agentcore/universal"
)

func TestFromNative_SessionCreated(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{"type":"session.created","sessionID":"ses_1"}`))
	if len(events) != 1 || events[0].Kind != universal.EventStarted {
		t.Fatalf("expected EventStarted, got %+v", events)
	}
}

func TestFromNative_PermissionRequested(t *testing.T) {
	c := New()
	line := []byte(`{"type":"permission.requested","sessionID":"ses_1","requestID":"p1","tool":"bash","arguments":{"cmd":"ls"}}`)
	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventPermissionAsked {
		t.Fatalf("expected EventPermissionAsked, got %+v", events)
	}
	if events[0].PermissionAsked.RequestID != "p1" {
		t.Errorf("expected requestID p1, got %s", events[0].PermissionAsked.RequestID)
	}
}

func TestFromNative_QuestionAsked(t *testing.T) {
	c := New()
	line := []byte(`{"type":"question.asked","sessionID":"ses_1","requestID":"q1","questions":[{"question":"Pick one","options":[{"label":"A"},{"label":"B"}]}]}`)
	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventQuestionAsked {
		t.Fatalf("expected EventQuestionAsked, got %+v", events)
	}
	if len(events[0].QuestionAsked.Questions) != 1 || len(events[0].QuestionAsked.Questions[0].Options) != 2 {
		t.Errorf("expected 1 question with 2 options, got %+v", events[0].QuestionAsked.Questions)
	}
	if events[0].QuestionAsked.Prompt != "Pick one" {
		t.Errorf("expected prompt to mirror the first sub-question, got %q", events[0].QuestionAsked.Prompt)
	}
}

func TestFromNative_QuestionAskedBatchesSubQuestions(t *testing.T) {
	c := New()
	line := []byte(`{"type":"question.asked","sessionID":"ses_1","requestID":"q2","questions":[
		{"question":"Which env?","options":[{"label":"staging"},{"label":"prod","description":"irreversible"}]},
		{"question":"Which regions?","multiSelect":true,"options":[{"label":"us-east"},{"label":"eu-west"}]}
	]}`)
	events := c.FromNative(line)
	if len(events) != 1 || events[0].Kind != universal.EventQuestionAsked {
		t.Fatalf("expected EventQuestionAsked, got %+v", events)
	}
	q := events[0].QuestionAsked
	if len(q.Questions) != 2 {
		t.Fatalf("expected 2 sub-questions, got %d", len(q.Questions))
	}
	if q.Questions[1].Options[1].Metadata != nil {
		t.Errorf("did not expect metadata on an option without a description, got %+v", q.Questions[1].Options[1])
	}
	if q.Questions[0].Options[1].Metadata["description"] != "irreversible" {
		t.Errorf("expected option description to carry through metadata, got %+v", q.Questions[0].Options[1])
	}
	if !q.Questions[1].MultiSelect {
		t.Errorf("expected second sub-question to be multiSelect")
	}
}

func TestFromNative_UnrecognizedType(t *testing.T) {
	c := New()
	events := c.FromNative([]byte(`{"type":"session.something_new","sessionID":"ses_1"}`))
	if len(events) != 1 || events[0].Kind != universal.EventUnparsed {
		t.Fatalf("expected Unparsed, got %+v", events)
	}
}

func TestToNative_NeverRejectsImages(t *testing.T) {
	c := New()
	msg := universal.Message{Text: "hi", Images: []universal.ImageAttachment{{MimeType: "image/png", Data: "x"}}}
	if _, err := c.ToNative(msg); err != nil {
		t.Fatalf("expected opencode to accept images, got %v", err)
	}
}

func TestNativeSessionID(t *testing.T) {
	c := New()
	id, ok := c.NativeSessionID([]byte(`{"type":"session.created","sessionID":"ses_42"}`))
	if !ok || id != "ses_42" {
		t.Errorf("expected ses_42, got %q ok=%v", id, ok)
	}
}
