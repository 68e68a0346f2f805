// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hitl

import (
	"fmt"
	"sync"

	"github.com/bureau-foundation/agentcore/universal"
)

// Coordinator tracks open questions and open permission prompts for one
// session. Zero value is not usable; construct with New.
type Coordinator struct {
	sessionID string

	mu          sync.Mutex
	questions   map[string]universal.QuestionRequest
	permissions map[string]universal.PermissionRequest
}

// New constructs a Coordinator for one session.
func New(sessionID string) *Coordinator {
	return &Coordinator{
		sessionID:   sessionID,
		questions:   make(map[string]universal.QuestionRequest),
		permissions: make(map[string]universal.PermissionRequest),
	}
}

// IndexQuestion records an open question. Callers must do this before
// the corresponding event reaches the event log.
func (c *Coordinator) IndexQuestion(req universal.QuestionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[req.RequestID] = req
}

// IndexPermission records an open permission prompt. Same ordering
// requirement as IndexQuestion.
func (c *Coordinator) IndexPermission(req universal.PermissionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissions[req.RequestID] = req
}

// AnswerQuestion validates and resolves an open question. On success
// the request is removed from the map; the caller is responsible for
// forwarding the reply to the driver.
func (c *Coordinator) AnswerQuestion(requestID string, answers [][]string) (universal.QuestionRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.questions[requestID]
	if !ok {
		return universal.QuestionRequest{}, universal.NewError(universal.InvalidRequest,
			fmt.Sprintf("no open question with id %q", requestID)).
			WithContext(universal.ErrorContext{SessionID: c.sessionID, Field: "requestId"})
	}

	if err := validateAnswers(req, answers); err != nil {
		return universal.QuestionRequest{}, err
	}

	delete(c.questions, requestID)
	return req, nil
}

func validateAnswers(req universal.QuestionRequest, answers [][]string) error {
	if len(answers) != len(req.Options) {
		return universal.NewError(universal.InvalidRequest,
			fmt.Sprintf("expected %d sub-answers, got %d", len(req.Options), len(answers))).
			WithContext(universal.ErrorContext{Field: "answers"})
	}

	for i, subAnswers := range answers {
		valid := make(map[string]bool, len(req.Options[i]))
		for _, opt := range req.Options[i] {
			valid[opt.Label] = true
		}
		for _, label := range subAnswers {
			if !valid[label] {
				return universal.NewError(universal.InvalidRequest,
					fmt.Sprintf("label %q is not one of the offered options for sub-question %d", label, i)).
					WithContext(universal.ErrorContext{Field: "answers"})
			}
		}
	}

	return nil
}

// RejectQuestion resolves an open question without an answer.
func (c *Coordinator) RejectQuestion(requestID string) (universal.QuestionRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.questions[requestID]
	if !ok {
		return universal.QuestionRequest{}, universal.NewError(universal.InvalidRequest,
			fmt.Sprintf("no open question with id %q", requestID)).
			WithContext(universal.ErrorContext{SessionID: c.sessionID, Field: "requestId"})
	}

	delete(c.questions, requestID)
	return req, nil
}

// ReplyPermission validates and resolves an open permission prompt.
func (c *Coordinator) ReplyPermission(requestID string, reply universal.PermissionReply) (universal.PermissionRequest, error) {
	if !reply.Valid() {
		return universal.PermissionRequest{}, universal.NewError(universal.InvalidRequest,
			fmt.Sprintf("invalid permission reply %q", reply)).
			WithContext(universal.ErrorContext{Field: "reply"})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.permissions[requestID]
	if !ok {
		return universal.PermissionRequest{}, universal.NewError(universal.InvalidRequest,
			fmt.Sprintf("no open permission prompt with id %q", requestID)).
			WithContext(universal.ErrorContext{SessionID: c.sessionID, Field: "requestId"})
	}

	delete(c.permissions, requestID)
	return req, nil
}

// Abandon drops every open question and permission prompt without
// resolving them, freeing their bookkeeping. Called on session delete
// or crash.
func (c *Coordinator) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions = make(map[string]universal.QuestionRequest)
	c.permissions = make(map[string]universal.PermissionRequest)
}

// OpenQuestionCount reports how many questions await a reply.
func (c *Coordinator) OpenQuestionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.questions)
}

// OpenPermissionCount reports how many permission prompts await a reply.
func (c *Coordinator) OpenPermissionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.permissions)
}
