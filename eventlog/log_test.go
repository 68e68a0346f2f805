// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/lib/testutil"
	"github.com/bureau-foundation/agentcore/universal"
)

func appendMessage(l *Log, text string) universal.Event {
	return l.Append(universal.EventMessage, func(e *universal.Event) {
		e.Message = &universal.MessageData{Role: "assistant", Text: text}
	})
}

func TestAppend_MonotonicIDs(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)

	for i := 1; i <= 5; i++ {
		event := appendMessage(l, "hello")
		if event.ID != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, event.ID)
		}
	}
}

func TestRange_DenseAndStartsAfterOffset(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	for i := 0; i < 5; i++ {
		appendMessage(l, "hello")
	}

	events, hasMore, err := l.Range(2, 0)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if hasMore {
		t.Error("expected hasMore=false when limit covers all remaining events")
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after offset 2, got %d", len(events))
	}
	for i, e := range events {
		if e.ID != uint64(3+i) {
			t.Errorf("expected event id %d, got %d", 3+i, e.ID)
		}
	}
}

func TestRange_LimitSetsHasMore(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	for i := 0; i < 5; i++ {
		appendMessage(l, "hello")
	}

	events, hasMore, err := l.Range(0, 2)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if !hasMore {
		t.Error("expected hasMore=true")
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestRange_BeyondLastEventReturnsEmpty(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	appendMessage(l, "hello")

	events, hasMore, err := l.Range(100, 0)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if hasMore || len(events) != 0 {
		t.Errorf("expected empty result beyond last event, got %d events hasMore=%v", len(events), hasMore)
	}
}

func TestRange_OffsetExpired(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 3, SubscriberBuffer: 4}, clock.Real(), nil)
	for i := 0; i < 10; i++ {
		appendMessage(l, "hello")
	}

	_, _, err := l.Range(1, 0)
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.StreamError {
		t.Fatalf("expected StreamError for evicted offset, got %v", err)
	}
	if agentErr.Context.Reason != "offset_expired" {
		t.Errorf("expected reason offset_expired, got %s", agentErr.Context.Reason)
	}
}

func TestRange_OffsetZeroExpiredAfterEviction(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 3, SubscriberBuffer: 4}, clock.Real(), nil)
	for i := 0; i < 10; i++ {
		appendMessage(l, "hello")
	}

	_, _, err := l.Range(0, 0)
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.StreamError {
		t.Fatalf("expected StreamError for offset 0 once the retention window has advanced past it, got %v", err)
	}
	if agentErr.Context.Reason != "offset_expired" {
		t.Errorf("expected reason offset_expired, got %s", agentErr.Context.Reason)
	}
}

func TestAppend_LogsEvictionDiagnostics(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := New("s1", "claude", Config{Capacity: 2, SubscriberBuffer: 4}, clock.Real(), logger)

	for i := 0; i < 5; i++ {
		appendMessage(l, "hello")
	}

	out := buf.String()
	if !strings.Contains(out, "event log evicted oldest events") {
		t.Fatalf("expected eviction diagnostic log line, got:\n%s", out)
	}
	if !strings.Contains(out, "compressed_bytes") {
		t.Fatalf("expected compressed_bytes field, got:\n%s", out)
	}
}

func TestCloseReleasesEncoder(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	appendMessage(l, "hello")
	l.Close()
}

func TestSubscribe_ReplayThenLive(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	appendMessage(l, "one")
	appendMessage(l, "two")

	sub, err := l.Subscribe(0)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	first := testutil.RequireReceive(t, sub.Events, time.Second, "replay event 1")
	second := testutil.RequireReceive(t, sub.Events, time.Second, "replay event 2")
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected replay ids 1,2 got %d,%d", first.ID, second.ID)
	}

	appendMessage(l, "three")
	third := testutil.RequireReceive(t, sub.Events, time.Second, "live event 3")
	if third.ID != 3 {
		t.Fatalf("expected live id 3, got %d", third.ID)
	}
}

func TestSubscribe_TwoSubscribersSeeIdenticalPrefix(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	appendMessage(l, "one")

	subA, err := l.Subscribe(0)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer subA.Close()
	subB, err := l.Subscribe(0)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer subB.Close()

	appendMessage(l, "two")

	for _, sub := range []*Subscription{subA, subB} {
		e1 := testutil.RequireReceive(t, sub.Events, time.Second, "event 1")
		e2 := testutil.RequireReceive(t, sub.Events, time.Second, "event 2")
		if e1.ID != 1 || e2.ID != 2 {
			t.Fatalf("expected ids 1,2 got %d,%d", e1.ID, e2.ID)
		}
	}
}

func TestSubscribe_SlowSubscriberDropped(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 100, SubscriberBuffer: 2}, clock.Real(), nil)

	sub, err := l.Subscribe(0)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 10; i++ {
		appendMessage(l, "flood")
	}

	testutil.RequireClosed(t, sub.Overflow, time.Second, "expected overflow signal for slow subscriber")
}

func TestSubscribe_OffsetExpired(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 2, SubscriberBuffer: 4}, clock.Real(), nil)
	for i := 0; i < 5; i++ {
		appendMessage(l, "hello")
	}

	_, err := l.Subscribe(1)
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.StreamError {
		t.Fatalf("expected StreamError for evicted offset, got %v", err)
	}
}

func TestSubscribe_OffsetZeroExpiredAfterEviction(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 2, SubscriberBuffer: 4}, clock.Real(), nil)
	for i := 0; i < 5; i++ {
		appendMessage(l, "hello")
	}

	_, err := l.Subscribe(0)
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.StreamError {
		t.Fatalf("expected StreamError for offset 0 once the retention window has advanced past it, got %v", err)
	}
}

func TestClose_ClosesSubscribers(t *testing.T) {
	l := New("s1", "claude", Config{Capacity: 10, SubscriberBuffer: 4}, clock.Real(), nil)
	sub, err := l.Subscribe(0)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	l.Close()

	select {
	case _, ok := <-sub.Events:
		if ok {
			t.Fatal("expected channel closed with no pending value")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	_, err = l.Subscribe(0)
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.SessionNotFound {
		t.Fatalf("expected SessionNotFound after close, got %v", err)
	}
}
