// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/hitl"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/universal"
)

// Summary aggregates a session's event log into counters a client can
// read alongside SessionInfo, beyond the bare event count.
type Summary struct {
	EventCount    int64         `json:"eventCount"`
	MessageCount  int64         `json:"messageCount"`
	ToolCallCount int64         `json:"toolCallCount"`
	ErrorCount    int64         `json:"errorCount"`
	TurnCount     int64         `json:"turnCount"`
	Duration      time.Duration `json:"duration"`
}

// Core owns one session's state machine, its driver, its event log, and
// its HITL coordinator. Exactly one goroutine (run) ever appends to the
// event log, preserving the single-writer invariant eventlog.Log relies
// on for monotonic ids.
type Core struct {
	sessionID string
	agent     string
	driver    agentdriver.Driver
	log       *eventlog.Log
	hitl      *hitl.Coordinator
	clk       clock.Clock
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	startedAt time.Time
	summary   Summary

	sendQueue chan sendRequest
	done      chan struct{}
}

type sendRequest struct {
	msg    universal.Message
	result chan error
}

// New constructs a Core bound to an already-constructed driver, event
// log, and HITL coordinator. Start must be called to begin the pump.
func New(sessionID, agent string, driver agentdriver.Driver, log *eventlog.Log, coordinator *hitl.Coordinator, clk clock.Clock, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Core{
		sessionID: sessionID,
		agent:     agent,
		driver:    driver,
		log:       log,
		hitl:      coordinator,
		clk:       clk,
		logger:    logger,
		state:     Starting,
		sendQueue: make(chan sendRequest, 64),
		done:      make(chan struct{}),
	}
}

// Start launches the driver and the event pump. Returns once the
// driver has accepted the start request; readiness is observed
// asynchronously via the pump.
func (c *Core) Start(ctx context.Context) error {
	if err := c.driver.Start(ctx); err != nil {
		c.setState(Crashed)
		return err
	}
	c.startedAt = c.clk.Now()
	go c.run(ctx)
	go c.drainQueue(ctx)
	return nil
}

// run is the single pump goroutine: driver events in, event log
// appends out, state transitions, HITL indexing.
func (c *Core) run(ctx context.Context) {
	for partial := range c.driver.Events() {
		c.handlePartial(partial)
	}
	// Driver closed its events channel: either Stop completed cleanly
	// (state already Ending/Ended) or the backend died unexpectedly.
	c.mu.Lock()
	crashed := c.state != Ending && c.state != Ended
	c.mu.Unlock()
	if crashed {
		c.setState(Crashed)
	}
	close(c.done)
}

func (c *Core) handlePartial(partial converter.PartialEvent) {
	switch partial.Kind {
	case universal.EventQuestionAsked:
		questions := partial.QuestionAsked.Questions
		options := make([][]universal.QuestionOption, len(questions))
		var multiSelect bool
		for i, q := range questions {
			options[i] = q.Options
			multiSelect = multiSelect || q.MultiSelect
		}
		c.hitl.IndexQuestion(universal.QuestionRequest{
			RequestID:     partial.QuestionAsked.RequestID,
			Prompt:        partial.QuestionAsked.Prompt,
			Options:       options,
			MultiSelect:   multiSelect,
			MultiQuestion: len(questions) > 1,
		})
	case universal.EventPermissionAsked:
		c.hitl.IndexPermission(universal.PermissionRequest{
			RequestID: partial.PermissionAsked.RequestID,
			ToolName:  partial.PermissionAsked.ToolName,
			Arguments: partial.PermissionAsked.Arguments,
			Scope:     partial.PermissionAsked.Scope,
		})
	}

	if id := c.driver.AgentSessionID(); id != "" {
		c.log.SetAgentSessionID(id)
	}

	event := c.log.Append(partial.Kind, partial.Populate)
	c.updateSummary(event)
	c.advance(event)
}

func (c *Core) updateSummary(event universal.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.EventCount++
	switch event.Kind {
	case universal.EventMessage:
		c.summary.MessageCount++
		if event.Message != nil && event.Message.ToolCall != nil {
			c.summary.ToolCallCount++
		}
	case universal.EventError:
		c.summary.ErrorCount++
	case universal.EventTurnComplete:
		c.summary.TurnCount++
	}
	c.summary.Duration = c.clk.Now().Sub(c.startedAt)
}

func (c *Core) advance(event universal.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Kind {
	case universal.EventStarted:
		if c.state == Starting {
			c.state = Ready
		}
	case universal.EventTurnComplete:
		if c.state == Busy {
			c.state = Ready
		}
	case universal.EventError:
		if event.Error != nil && event.Error.Kind == universal.AgentProcessExited {
			c.state = Crashed
		}
	case universal.EventMessage:
		if c.state == Starting {
			c.state = Ready
		}
	}
}

func (c *Core) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current state.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SummarySnapshot returns a snapshot of the session's aggregated counters.
func (c *Core) SummarySnapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Send enqueues a user turn. Returns once drainQueue has handed the
// turn to the driver (driver.Send returned), not once the backend has
// responded. Accepted while Starting; rejected once Ending/Ended/Crashed.
func (c *Core) Send(ctx context.Context, msg universal.Message) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if !state.Live() {
		return universal.NewError(universal.SessionNotFound, fmt.Sprintf("session %q is %s", c.sessionID, state)).
			WithContext(universal.ErrorContext{SessionID: c.sessionID})
	}

	req := sendRequest{msg: msg, result: make(chan error, 1)}
	select {
	case c.sendQueue <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainQueue is the one goroutine permitted to call driver.Send,
// preserving the per-session FIFO ordering of turns.
func (c *Core) drainQueue(ctx context.Context) {
	for {
		select {
		case req := <-c.sendQueue:
			c.mu.Lock()
			if c.state == Ready {
				c.state = Busy
			}
			c.mu.Unlock()
			req.result <- c.driver.Send(ctx, req.msg)
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// AnswerQuestion validates and forwards a question reply.
func (c *Core) AnswerQuestion(ctx context.Context, requestID string, answers [][]string) error {
	if _, err := c.hitl.AnswerQuestion(requestID, answers); err != nil {
		return err
	}
	return c.driver.AnswerQuestion(ctx, requestID, answers)
}

// RejectQuestion forwards a question rejection.
func (c *Core) RejectQuestion(ctx context.Context, requestID string) error {
	if _, err := c.hitl.RejectQuestion(requestID); err != nil {
		return err
	}
	return c.driver.RejectQuestion(ctx, requestID)
}

// ReplyPermission validates and forwards a permission decision.
func (c *Core) ReplyPermission(ctx context.Context, requestID string, reply universal.PermissionReply) error {
	if _, err := c.hitl.ReplyPermission(requestID, reply); err != nil {
		return err
	}
	return c.driver.ReplyPermission(ctx, requestID, reply)
}

// Update applies mutable field changes. Constraint enforcement
// (model-lock-after-spawn, variant support) happens in sessionmanager
// before this is called; Core just forwards to the driver.
func (c *Core) Update(ctx context.Context, fields agentdriver.UpdateFields) error {
	return c.driver.Update(ctx, fields)
}

// Stop transitions the session through Ending to Ended, stopping the
// driver and closing the event log and HITL bookkeeping. Idempotent.
func (c *Core) Stop(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.state == Ending || c.state == Ended {
		c.mu.Unlock()
		return nil
	}
	c.state = Ending
	c.mu.Unlock()

	err := c.driver.Stop(ctx, reason)

	<-c.done // wait for the pump to observe the driver's events channel close

	c.mu.Lock()
	if c.state != Crashed {
		c.state = Ended
	}
	c.mu.Unlock()

	c.hitl.Abandon()
	c.log.Close()

	return err
}

// AgentSessionID returns the native session id once observed.
func (c *Core) AgentSessionID() string { return c.driver.AgentSessionID() }
