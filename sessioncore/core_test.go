// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncore

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/hitl"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/universal"
)

type fakeDriver struct {
	events   chan converter.PartialEvent
	sent     []universal.Message
	stopped  bool
	nativeID string
	sendErr  error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{events: make(chan converter.PartialEvent, 16)}
}

func (d *fakeDriver) Start(ctx context.Context) error { return nil }

func (d *fakeDriver) Send(ctx context.Context, msg universal.Message) error {
	d.sent = append(d.sent, msg)
	return d.sendErr
}

func (d *fakeDriver) AnswerQuestion(ctx context.Context, requestID string, answers [][]string) error {
	return nil
}

func (d *fakeDriver) RejectQuestion(ctx context.Context, requestID string) error { return nil }

func (d *fakeDriver) ReplyPermission(ctx context.Context, requestID string, reply universal.PermissionReply) error {
	return nil
}

func (d *fakeDriver) Update(ctx context.Context, fields agentdriver.UpdateFields) error { return nil }

func (d *fakeDriver) Stop(ctx context.Context, reason string) error {
	d.stopped = true
	close(d.events)
	return nil
}

func (d *fakeDriver) Events() <-chan converter.PartialEvent { return d.events }

func (d *fakeDriver) AgentSessionID() string { return d.nativeID }

func (d *fakeDriver) Health(ctx context.Context) error { return nil }

func newTestCore(t *testing.T, driver *fakeDriver) (*Core, *eventlog.Log) {
	t.Helper()
	clk := clock.Fake(time.Unix(0, 0))
	log := eventlog.New("s1", "codex", eventlog.Config{}, clk, nil)
	coordinator := hitl.New("s1")
	core := New("s1", "codex", driver, log, coordinator, clk, nil)
	if err := core.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return core, log
}

func TestCore_StartedTransitionsToReady(t *testing.T) {
	driver := newFakeDriver()
	core, _ := newTestCore(t, driver)

	driver.events <- converter.PartialEvent{Kind: universal.EventStarted, Started: &universal.StartedData{}}

	waitForState(t, core, Ready)
}

func TestCore_SendRoundTrip(t *testing.T) {
	driver := newFakeDriver()
	core, log := newTestCore(t, driver)

	driver.events <- converter.PartialEvent{Kind: universal.EventStarted, Started: &universal.StartedData{}}
	waitForState(t, core, Ready)

	if err := core.Send(context.Background(), universal.Message{Text: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitForState(t, core, Busy)

	driver.events <- converter.PartialEvent{Kind: universal.EventTurnComplete, TurnComplete: &universal.TurnCompleteData{}}
	waitForState(t, core, Ready)

	if log.EventCount() != 2 {
		t.Fatalf("EventCount = %d, want 2", log.EventCount())
	}
}

func TestCore_QuestionIndexedBeforeAppend(t *testing.T) {
	driver := newFakeDriver()
	core, log := newTestCore(t, driver)

	driver.events <- converter.PartialEvent{
		Kind: universal.EventQuestionAsked,
		QuestionAsked: &universal.QuestionAskedData{
			RequestID: "q1",
			Prompt:    "Approve?",
			Questions: []universal.SubQuestion{{
				Question: "Approve?",
				Options:  []universal.QuestionOption{{Label: "Approve"}, {Label: "Reject"}},
			}},
		},
	}

	deadline := time.Now().Add(2 * time.Second)
	for log.EventCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := core.AnswerQuestion(context.Background(), "q1", [][]string{{"Approve"}}); err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
}

func TestCore_StopIsIdempotent(t *testing.T) {
	driver := newFakeDriver()
	core, _ := newTestCore(t, driver)

	if err := core.Stop(context.Background(), "test"); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := core.Stop(context.Background(), "test"); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if core.State() != Ended {
		t.Fatalf("State after Stop = %v, want Ended", core.State())
	}
}

func TestCore_SendRejectedAfterEnded(t *testing.T) {
	driver := newFakeDriver()
	core, _ := newTestCore(t, driver)

	if err := core.Stop(context.Background(), "test"); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	err := core.Send(context.Background(), universal.Message{Text: "hi"})
	if err == nil {
		t.Fatal("Send after Stop should fail")
	}
}

func waitForState(t *testing.T, core *Core, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if core.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("State = %v, want %v", core.State(), want)
}
