// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/universal"
)

// Log is a per-session append-only ring buffer of universal.Event.
// Zero value is not usable; construct with [New].
type Log struct {
	sessionID string
	agent     string
	capacity  int
	subBuffer int
	clk       clock.Clock
	logger    *slog.Logger
	encoder   *zstd.Encoder

	mu             sync.Mutex
	events         []universal.Event // dense window, oldest first
	nextID         uint64            // id to assign to the next append
	baseOffset     uint64            // id of the newest evicted event (events[0].ID-1), 0 before any eviction
	agentSessionID string
	closed         bool
	subscribers    map[int]*subscriber
	nextSubID      int
}

type subscriber struct {
	ch       chan universal.Event
	overflow chan struct{}
	closed   bool
}

// Config bounds a Log's retained window and per-subscriber buffering.
type Config struct {
	// Capacity is the maximum number of events retained before the
	// oldest are evicted.
	Capacity int

	// SubscriberBuffer is the channel buffer size for each subscriber.
	SubscriberBuffer int
}

// New constructs a Log for one session. logger receives diagnostics
// about evicted event batches; pass nil to discard them (most tests
// don't care about eviction diagnostics and needn't supply a logger).
func New(sessionID, agent string, cfg Config, clk clock.Clock, logger *slog.Logger) *Log {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 4096
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 64
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic("eventlog: zstd encoder init failed: " + err.Error())
	}
	return &Log{
		sessionID:   sessionID,
		agent:       agent,
		capacity:    cfg.Capacity,
		subBuffer:   cfg.SubscriberBuffer,
		clk:         clk,
		logger:      logger,
		encoder:     encoder,
		nextID:      1,
		subscribers: make(map[int]*subscriber),
	}
}

// SetAgentSessionID records the native session id once observed. It is
// attached to every event appended afterward.
func (l *Log) SetAgentSessionID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.agentSessionID = id
}

// AgentSessionID returns the currently recorded native session id, if any.
func (l *Log) AgentSessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.agentSessionID
}

// Append assigns the next monotonic id to a new event built from kind
// and the supplied variant payload setter, pushes it onto the buffer,
// and signals subscribers. Returns the finished event.
func (l *Log) Append(kind universal.EventKind, populate func(*universal.Event)) universal.Event {
	l.mu.Lock()

	event := universal.Event{
		ID:             l.nextID,
		Timestamp:      l.clk.Now().UTC(),
		SessionID:      l.sessionID,
		Agent:          l.agent,
		AgentSessionID: l.agentSessionID,
		Kind:           kind,
	}
	if populate != nil {
		populate(&event)
	}
	l.nextID++

	l.events = append(l.events, event)
	var evicted []universal.Event
	if len(l.events) > l.capacity {
		evict := len(l.events) - l.capacity
		evicted = l.events[:evict]
		l.events = l.events[evict:]
		l.baseOffset += uint64(evict)
	}

	subs := make([]*subscriber, 0, len(l.subscribers))
	for _, s := range l.subscribers {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	if len(evicted) > 0 {
		l.logEviction(evicted)
	}

	for _, s := range subs {
		l.deliver(s, event)
	}

	return event
}

func (l *Log) deliver(s *subscriber, event universal.Event) {
	select {
	case s.ch <- event:
	default:
		// Subscriber can't keep up: drop it rather than block the
		// single writer. Close(overflow) is idempotent-safe because
		// only the writer goroutine ever sends here.
		if !s.closed {
			s.closed = true
			close(s.overflow)
		}
	}
}

// Range returns events with id > offset, in ascending order, up to
// limit. hasMore is true iff more events exist after the returned
// slice. Returns a StreamError{offset_expired} if offset falls below
// the retained window.
func (l *Log) Range(offset uint64, limit int) ([]universal.Event, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) > 0 && offset < l.baseOffset {
		return nil, false, universal.NewError(universal.StreamError, "requested offset has been evicted from the retention window").
			WithContext(universal.ErrorContext{SessionID: l.sessionID, Reason: "offset_expired"})
	}

	if len(l.events) == 0 {
		return []universal.Event{}, false, nil
	}

	start := 0
	if offset >= l.baseOffset {
		start = int(offset - l.baseOffset)
	}
	if start >= len(l.events) {
		return []universal.Event{}, false, nil
	}

	remaining := l.events[start:]
	if limit <= 0 || limit >= len(remaining) {
		out := make([]universal.Event, len(remaining))
		copy(out, remaining)
		return out, false, nil
	}

	out := make([]universal.Event, limit)
	copy(out, remaining[:limit])
	return out, true, nil
}

// Subscription is a live view onto a Log, delivering the replay of
// events after offset followed by newly appended events.
type Subscription struct {
	Events <-chan universal.Event
	// Overflow is closed if the subscriber fell behind and was
	// dropped. Callers must stop reading Events and call Close.
	Overflow <-chan struct{}

	log *Log
	id  int
}

// Close releases the subscription. Idempotent.
func (s *Subscription) Close() {
	s.log.unsubscribe(s.id)
}

// Subscribe returns a replay of events with id > offset followed by
// live events as they arrive. Returns StreamError{offset_expired} if
// offset is outside the retained window.
func (l *Log) Subscribe(offset uint64) (*Subscription, error) {
	l.mu.Lock()

	if l.closed {
		l.mu.Unlock()
		return nil, universal.NewError(universal.SessionNotFound, "session event log is closed").
			WithContext(universal.ErrorContext{SessionID: l.sessionID})
	}

	if len(l.events) > 0 && offset < l.baseOffset {
		l.mu.Unlock()
		return nil, universal.NewError(universal.StreamError, "requested offset has been evicted from the retention window").
			WithContext(universal.ErrorContext{SessionID: l.sessionID, Reason: "offset_expired"})
	}

	replay := l.replayLocked(offset)

	sub := &subscriber{
		ch:       make(chan universal.Event, l.subBuffer),
		overflow: make(chan struct{}),
	}
	// Feed the replay in first, under the lock and before the subscriber
	// is registered, so no live event can arrive on this subscriber's
	// channel ahead of it: no gap or duplicate.
	for _, event := range replay {
		select {
		case sub.ch <- event:
		default:
			if !sub.closed {
				sub.closed = true
				close(sub.overflow)
			}
		}
	}

	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = sub
	l.mu.Unlock()

	return &Subscription{Events: sub.ch, Overflow: sub.overflow, log: l, id: id}, nil
}

func (l *Log) replayLocked(offset uint64) []universal.Event {
	if len(l.events) == 0 {
		return nil
	}
	start := 0
	if offset >= l.baseOffset {
		start = int(offset - l.baseOffset)
	}
	if start >= len(l.events) {
		return nil
	}
	out := make([]universal.Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

func (l *Log) unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subscribers, id)
}

// Close marks the log closed: further Subscribe calls fail with
// SessionNotFound, and all live subscriber channels are closed. Range
// on a closed log still returns retained history.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, s := range l.subscribers {
		close(s.ch)
	}
	l.subscribers = make(map[int]*subscriber)
	l.encoder.Close()
}

// logEviction compresses the evicted batch with zstd and logs its size
// against the uncompressed JSON encoding, purely as a diagnostic: the
// events themselves are gone once evicted, this just records what was
// lost and how much it would have cost to keep spilling it to disk.
func (l *Log) logEviction(evicted []universal.Event) {
	if l.logger == nil {
		return
	}
	raw, err := json.Marshal(evicted)
	if err != nil {
		return
	}
	compressed := l.encoder.EncodeAll(raw, nil)
	l.logger.Debug("event log evicted oldest events",
		"session_id", l.sessionID,
		"count", len(evicted),
		"raw_bytes", len(raw),
		"compressed_bytes", len(compressed),
	)
}

// LastEventID returns the id of the most recently appended event, or 0
// if none have been appended.
func (l *Log) LastEventID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.nextID == 1 {
		return 0
	}
	return l.nextID - 1
}

// EventCount returns the number of events currently retained (not the
// lifetime total, which may exceed capacity).
func (l *Log) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *Log) String() string {
	return fmt.Sprintf("eventlog(session=%s, agent=%s, retained=%d)", l.sessionID, l.agent, l.EventCount())
}
