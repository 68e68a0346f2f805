// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionmanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/agentregistry"
	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/hitl"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/sessioncore"
	"github.com/bureau-foundation/agentcore/universal"
)

// DriverBuilder constructs a Driver for one session of a given kind.
// cmd/agentcored supplies one per agentregistry.Kind: subprocess kinds
// get a fresh agentdriver.SubprocessDriver, OpenCode gets a handle from
// the shared agentdriver.ServerManager.
type DriverBuilder func(spec agentdriver.Spec) (agentdriver.Driver, error)

// CreateRequest is the validated input to Create.
type CreateRequest struct {
	Agent            agentregistry.Kind
	AgentMode        string
	PermissionMode   string
	Model            string
	Variant          string
	WorkingDirectory string
}

// CreateResult mirrors the HTTP response shape for session create.
type CreateResult struct {
	Healthy        bool            `json:"healthy"`
	Error          *universal.Error `json:"error,omitempty"`
	AgentSessionID string          `json:"agentSessionId,omitempty"`
}

// Info is a snapshot of one session's state for Get/List.
type Info struct {
	SessionID      string             `json:"sessionId"`
	Agent          agentregistry.Kind `json:"agent"`
	AgentMode      string             `json:"agentMode"`
	PermissionMode string             `json:"permissionMode"`
	Model          string             `json:"model,omitempty"`
	Variant        string             `json:"variant,omitempty"`
	State          sessioncore.State  `json:"state"`
	AgentSessionID string             `json:"agentSessionId,omitempty"`
	Ended          bool               `json:"ended"`
	EventCount     int                `json:"eventCount"`
	Metrics        sessioncore.Summary `json:"metrics"`
}

type session struct {
	id             string
	agent          agentregistry.Kind
	agentMode      string
	permissionMode string
	model          string
	variant        string

	core            *sessioncore.Core
	log             *eventlog.Log
	hitlCoordinator *hitl.Coordinator

	mu sync.Mutex
}

// Manager owns the live session map.
type Manager struct {
	registry *agentregistry.Registry
	builders map[agentregistry.Kind]DriverBuilder
	eventCfg eventlog.Config
	clk      clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New constructs a Manager. builders must have an entry for every kind
// the registry catalogues that the caller wants to allow creating.
func New(registry *agentregistry.Registry, builders map[agentregistry.Kind]DriverBuilder, eventCfg eventlog.Config, clk clock.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Manager{
		registry: registry,
		builders: builders,
		eventCfg: eventCfg,
		clk:      clk,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Create constructs and starts a new session under sessionID.
func (m *Manager) Create(ctx context.Context, sessionID string, req CreateRequest) (CreateResult, error) {
	m.mu.Lock()
	if _, exists := m.sessions[sessionID]; exists {
		m.mu.Unlock()
		return CreateResult{}, universal.NewError(universal.SessionAlreadyExists,
			fmt.Sprintf("session %q already exists", sessionID)).
			WithContext(universal.ErrorContext{SessionID: sessionID})
	}
	m.mu.Unlock()

	if _, ok := m.registry.Entry(req.Agent); !ok {
		return CreateResult{}, universal.NewError(universal.UnsupportedAgent,
			fmt.Sprintf("unknown agent %q", req.Agent)).
			WithContext(universal.ErrorContext{SessionID: sessionID, Agent: string(req.Agent)})
	}

	agentMode, err := m.registry.NormalizeMode(ctx, req.Agent, req.AgentMode)
	if err != nil {
		return CreateResult{}, err
	}
	permissionMode, err := m.registry.NormalizePermissionMode(req.Agent, req.PermissionMode)
	if err != nil {
		return CreateResult{}, err
	}

	builder, ok := m.builders[req.Agent]
	if !ok {
		return CreateResult{}, universal.NewError(universal.AgentNotInstalled,
			fmt.Sprintf("no driver available for agent %q", req.Agent)).
			WithContext(universal.ErrorContext{SessionID: sessionID, Agent: string(req.Agent)})
	}

	driver, err := builder(agentdriver.Spec{
		SessionID:        sessionID,
		AgentMode:        agentMode,
		PermissionMode:   permissionMode,
		Model:            req.Model,
		Variant:          req.Variant,
		WorkingDirectory: req.WorkingDirectory,
	})
	if err != nil {
		return CreateResult{}, err
	}

	log := eventlog.New(sessionID, string(req.Agent), m.eventCfg, m.clk, m.logger)
	coordinator := hitl.New(sessionID)
	core := sessioncore.New(sessionID, string(req.Agent), driver, log, coordinator, m.clk, m.logger)

	sess := &session{
		id:              sessionID,
		agent:           req.Agent,
		agentMode:       agentMode,
		permissionMode:  permissionMode,
		model:           req.Model,
		variant:         req.Variant,
		core:            core,
		log:             log,
		hitlCoordinator: coordinator,
	}

	if err := core.Start(ctx); err != nil {
		return CreateResult{Healthy: false, Error: asUniversalError(err)}, nil
	}

	m.mu.Lock()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	return CreateResult{Healthy: true, AgentSessionID: driver.AgentSessionID()}, nil
}

func asUniversalError(err error) *universal.Error {
	if uerr, ok := err.(*universal.Error); ok {
		return uerr
	}
	return universal.NewError(universal.AgentProcessExited, err.Error())
}

// Update applies mutable field changes, enforcing per-agent constraints.
func (m *Manager) Update(ctx context.Context, sessionID string, fields agentdriver.UpdateFields) (Info, error) {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return Info{}, err
	}

	sess.mu.Lock()
	nativeIDObserved := sess.core.AgentSessionID() != ""

	if fields.Model != nil {
		entry, _ := m.registry.Entry(sess.agent)
		if err := checkModelMutable(sess.agent, entry.Capabilities.ModelMutableAfterSpawn, nativeIDObserved); err != nil {
			sess.mu.Unlock()
			return Info{}, err
		}
	}
	if fields.Variant != nil {
		entry, _ := m.registry.Entry(sess.agent)
		if !entry.Capabilities.VariantSupported {
			sess.mu.Unlock()
			return Info{}, universal.NewError(universal.ModeNotSupported,
				fmt.Sprintf("agent %q does not support variant", sess.agent)).
				WithContext(universal.ErrorContext{SessionID: sessionID, Agent: string(sess.agent), Field: "variant"})
		}
	}

	var normalizedMode, normalizedPermission string
	if fields.AgentMode != nil {
		normalizedMode, err = m.registry.NormalizeMode(ctx, sess.agent, *fields.AgentMode)
		if err != nil {
			sess.mu.Unlock()
			return Info{}, err
		}
	}
	if fields.PermissionMode != nil {
		normalizedPermission, err = m.registry.NormalizePermissionMode(sess.agent, *fields.PermissionMode)
		if err != nil {
			sess.mu.Unlock()
			return Info{}, err
		}
	}
	sess.mu.Unlock()

	// All validation passed: apply atomically. Build the driver-facing
	// fields using normalized values so downstream transports never see
	// an unrecognized mode string.
	driverFields := agentdriver.UpdateFields{}
	if fields.Model != nil {
		driverFields.Model = fields.Model
	}
	if fields.Variant != nil {
		driverFields.Variant = fields.Variant
	}
	if fields.AgentMode != nil {
		driverFields.AgentMode = &normalizedMode
	}
	if fields.PermissionMode != nil {
		driverFields.PermissionMode = &normalizedPermission
	}

	if err := sess.core.Update(ctx, driverFields); err != nil {
		return Info{}, err
	}

	sess.mu.Lock()
	if fields.Model != nil {
		sess.model = *fields.Model
	}
	if fields.Variant != nil {
		sess.variant = *fields.Variant
	}
	if fields.AgentMode != nil {
		sess.agentMode = normalizedMode
	}
	if fields.PermissionMode != nil {
		sess.permissionMode = normalizedPermission
	}
	sess.mu.Unlock()

	return m.snapshot(sess), nil
}

func checkModelMutable(agent agentregistry.Kind, mutableAfterSpawn, nativeIDObserved bool) error {
	if mutableAfterSpawn || !nativeIDObserved {
		return nil
	}
	return universal.NewError(universal.PermissionDenied, "model cannot change after the agent's native session id has been observed").
		WithContext(universal.ErrorContext{Agent: string(agent), Reason: "model_locked_after_spawn", Field: "model"})
}

// Delete stops the session's driver and removes it from the map.
// Idempotent: deleting an already-deleted session returns SessionNotFound.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return universal.NewError(universal.SessionNotFound, fmt.Sprintf("session %q not found", sessionID)).
			WithContext(universal.ErrorContext{SessionID: sessionID})
	}

	return sess.core.Stop(ctx, "deleted")
}

// Get returns a snapshot of one session.
func (m *Manager) Get(sessionID string) (Info, error) {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return Info{}, err
	}
	return m.snapshot(sess), nil
}

// List enumerates every live session.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, m.snapshot(sess))
	}
	return infos
}

func (m *Manager) lookup(sessionID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, universal.NewError(universal.SessionNotFound, fmt.Sprintf("session %q not found", sessionID)).
			WithContext(universal.ErrorContext{SessionID: sessionID})
	}
	return sess, nil
}

func (m *Manager) snapshot(sess *session) Info {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	state := sess.core.State()
	return Info{
		SessionID:      sess.id,
		Agent:          sess.agent,
		AgentMode:      sess.agentMode,
		PermissionMode: sess.permissionMode,
		Model:          sess.model,
		Variant:        sess.variant,
		State:          state,
		AgentSessionID: sess.core.AgentSessionID(),
		Ended:          state.Terminal(),
		EventCount:     sess.log.EventCount(),
		Metrics:        sess.core.SummarySnapshot(),
	}
}

// Log returns the event log for one session, for use by the HTTP
// layer's range/SSE endpoints.
func (m *Manager) Log(sessionID string) (*eventlog.Log, error) {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.log, nil
}

// Send enqueues a user turn.
func (m *Manager) Send(ctx context.Context, sessionID string, msg universal.Message) error {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.core.Send(ctx, msg)
}

// AnswerQuestion forwards a question reply.
func (m *Manager) AnswerQuestion(ctx context.Context, sessionID, requestID string, answers [][]string) error {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.core.AnswerQuestion(ctx, requestID, answers)
}

// RejectQuestion forwards a question rejection.
func (m *Manager) RejectQuestion(ctx context.Context, sessionID, requestID string) error {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.core.RejectQuestion(ctx, requestID)
}

// ReplyPermission forwards a permission decision.
func (m *Manager) ReplyPermission(ctx context.Context, sessionID, requestID string, reply universal.PermissionReply) error {
	sess, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.core.ReplyPermission(ctx, requestID, reply)
}

// Shutdown stops every live session with a bounded grace period,
// draining the whole map. Used by cmd/agentcored on process termination.
func (m *Manager) Shutdown(ctx context.Context, grace time.Duration) {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		sessions = append(sessions, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(s *session) {
			defer wg.Done()
			stopCtx, cancel := context.WithTimeout(ctx, grace)
			defer cancel()
			if err := s.core.Stop(stopCtx, "shutdown"); err != nil {
				m.logger.Warn("session stop failed during shutdown", "session_id", s.id, "error", err)
			}
		}(sess)
	}
	wg.Wait()
}
