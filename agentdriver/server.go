// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/lib/llm"
	"github.com/bureau-foundation/agentcore/universal"
)

// ServerManagerConfig configures a ServerManager.
type ServerManagerConfig struct {
	BinaryPath      string
	PortRangeStart  int
	PortRangeEnd    int
	StartupDeadline time.Duration
	RestartAttempts int
}

// ServerManager owns one shared agent server process for a kind,
// demuxing its SSE event stream across every attached session by
// native session id. Only one ServerManager exists per agent kind per
// daemon; sessions attach and detach but never own the process.
type ServerManager struct {
	cfg    ServerManagerConfig
	conv   converter.Converter
	client *http.Client
	clk    clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	baseURL  string
	sessions map[string]*serverSession // keyed by native session id
	pending  map[string]*serverSession // keyed by daemon session id, before native id is known
	restarts int
}

type serverSession struct {
	sessionID string
	events    chan converter.PartialEvent
	nativeID  string
	stopped   bool // guarded by ServerManager.mu
}

// NewServerManager constructs a manager for one agent kind's shared
// server. The process is not started until the first CreateSession
// call (or EagerStart, driven by the caller).
func NewServerManager(cfg ServerManagerConfig, conv converter.Converter, clk clock.Clock, logger *slog.Logger) *ServerManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &ServerManager{
		cfg:      cfg,
		conv:     conv,
		client:   &http.Client{Timeout: 30 * time.Second},
		clk:      clk,
		logger:   logger,
		sessions: make(map[string]*serverSession),
		pending:  make(map[string]*serverSession),
	}
}

// EnsureStarted launches the shared server if it is not already
// running, blocking until its health endpoint responds or the
// startup deadline elapses.
func (m *ServerManager) EnsureStarted(ctx context.Context) error {
	m.mu.Lock()
	if m.cmd != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	port, err := scanPort(m.cfg.PortRangeStart, m.cfg.PortRangeEnd)
	if err != nil {
		return universal.NewError(universal.InstallFailed, err.Error())
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(m.cfg.BinaryPath, "serve", "--port", fmt.Sprintf("%d", port))
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return universal.NewError(universal.InstallFailed, fmt.Sprintf("starting shared server: %v", err))
	}

	m.mu.Lock()
	m.cmd = cmd
	m.baseURL = baseURL
	m.mu.Unlock()

	if err := m.waitForHealth(ctx, baseURL); err != nil {
		alive := cmd.ProcessState == nil
		m.mu.Lock()
		m.cmd = nil
		m.mu.Unlock()
		if alive {
			return universal.NewError(universal.InstallFailed, "shared server did not become healthy before the startup deadline")
		}
		return universal.NewError(universal.AgentProcessExited, "shared server exited during startup")
	}

	go m.runDemux(baseURL)

	return nil
}

func (m *ServerManager) waitForHealth(ctx context.Context, baseURL string) error {
	deadline := m.cfg.StartupDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	backoff := 50 * time.Millisecond
	for {
		resp, err := m.client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clk.After(backoff):
		}

		backoff *= 2
		if backoff > 2*time.Second {
			backoff = 2 * time.Second
		}
	}
}

func scanPort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		if probePortFree(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// probePortFree reports whether a loopback TCP port is currently free
// by briefly binding it and releasing it.
func probePortFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// runDemux reads the shared SSE event stream and routes each event to
// the session it names. On stream break, every attached session
// receives an error event and the manager attempts one bounded
// restart sequence.
func (m *ServerManager) runDemux(baseURL string) {
	resp, err := m.client.Get(baseURL + "/event")
	if err != nil {
		m.broadcastError(fmt.Sprintf("connecting to shared server event stream: %v", err))
		m.attemptRestart()
		return
	}
	defer resp.Body.Close()

	scanner := llm.NewSSEScanner(resp.Body)
	for scanner.Next() {
		event := scanner.Event()
		m.route([]byte(event.Data))
	}

	m.broadcastError("shared server event stream ended")
	m.attemptRestart()
}

func (m *ServerManager) broadcastError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastErrorLocked(message)
}

func (m *ServerManager) route(payload []byte) {
	nativeID, ok := m.conv.NativeSessionID(payload)
	if !ok {
		return
	}

	partials := m.conv.FromNative(payload)

	m.mu.Lock()
	defer m.mu.Unlock()

	session, known := m.sessions[nativeID]
	if !known {
		// First time this native id has been observed: graduate it
		// from the pending-by-daemon-id table.
		for daemonID, pending := range m.pending {
			if pending.nativeID == "" {
				pending.nativeID = nativeID
				m.sessions[nativeID] = pending
				delete(m.pending, daemonID)
				session = pending
				known = true
				break
			}
		}
	}

	if !known || session.stopped {
		return
	}

	for _, partial := range partials {
		select {
		case session.events <- partial:
		default:
		}
	}
}

// broadcastErrorLocked must be called with m.mu held, so the send-or-skip
// decision for every session is atomic with Stop's close(events).
func (m *ServerManager) broadcastErrorLocked(message string) {
	sessions := make([]*serverSession, 0, len(m.sessions)+len(m.pending))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	for _, s := range m.pending {
		sessions = append(sessions, s)
	}

	for _, s := range sessions {
		if s.stopped {
			continue
		}
		select {
		case s.events <- converter.PartialEvent{
			Kind: universal.EventError,
			Error: &universal.ErrorData{
				Kind:    universal.AgentProcessExited,
				Message: message,
				Context: universal.ErrorContext{SessionID: s.sessionID},
			},
		}:
		default:
		}
	}
}

func (m *ServerManager) attemptRestart() {
	m.mu.Lock()
	m.restarts++
	exceeded := m.restarts > m.cfg.RestartAttempts
	m.cmd = nil
	m.mu.Unlock()

	if exceeded {
		m.logger.Error("shared server restart attempts exhausted, sessions terminated")
		return
	}

	if err := m.EnsureStarted(context.Background()); err != nil {
		m.logger.Error("shared server restart failed", "error", err)
	}
}

// CreateSession registers a new daemon session with the shared server
// and returns a Driver handle for it.
func (m *ServerManager) CreateSession(ctx context.Context, spec Spec) (Driver, error) {
	if err := m.EnsureStarted(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	baseURL := m.baseURL
	m.mu.Unlock()

	body, _ := json.Marshal(struct {
		AgentMode      string `json:"agentMode"`
		PermissionMode string `json:"permissionMode"`
		Model          string `json:"model,omitempty"`
		Variant        string `json:"variant,omitempty"`
	}{spec.AgentMode, spec.PermissionMode, spec.Model, spec.Variant})

	resp, err := m.client.Post(baseURL+"/session", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, universal.NewError(universal.AgentProcessExited, fmt.Sprintf("creating server session: %v", err))
	}
	defer resp.Body.Close()

	var created struct {
		SessionID string `json:"sessionID"`
	}
	json.NewDecoder(resp.Body).Decode(&created)

	session := &serverSession{
		sessionID: spec.SessionID,
		events:    make(chan converter.PartialEvent, 256),
		nativeID:  created.SessionID,
	}

	m.mu.Lock()
	if created.SessionID != "" {
		m.sessions[created.SessionID] = session
	} else {
		m.pending[spec.SessionID] = session
	}
	m.mu.Unlock()

	return &ServerSessionDriver{manager: m, session: session, spec: spec, baseURL: baseURL, conv: m.conv}, nil
}

// ServerSessionDriver is the per-session Driver handle returned by
// ServerManager.CreateSession.
type ServerSessionDriver struct {
	manager *ServerManager
	session *serverSession
	spec    Spec
	baseURL string
	conv    converter.Converter
}

func (d *ServerSessionDriver) Start(ctx context.Context) error { return nil } // session already created

func (d *ServerSessionDriver) Send(ctx context.Context, msg universal.Message) error {
	native, err := d.conv.ToNative(msg)
	if err != nil {
		return err
	}
	return d.post(ctx, "/session/"+d.nativeID()+"/prompt", native)
}

func (d *ServerSessionDriver) AnswerQuestion(ctx context.Context, requestID string, answers [][]string) error {
	payload, _ := json.Marshal(struct {
		Answers [][]string `json:"answers"`
	}{answers})
	return d.post(ctx, "/question/"+requestID+"/reply", payload)
}

func (d *ServerSessionDriver) RejectQuestion(ctx context.Context, requestID string) error {
	return d.post(ctx, "/question/"+requestID+"/reject", []byte(`{}`))
}

func (d *ServerSessionDriver) ReplyPermission(ctx context.Context, requestID string, reply universal.PermissionReply) error {
	if !reply.Valid() {
		return universal.NewError(universal.InvalidRequest, fmt.Sprintf("invalid permission reply %q", reply))
	}
	payload, _ := json.Marshal(struct {
		Reply universal.PermissionReply `json:"reply"`
	}{reply})
	return d.post(ctx, "/permission/"+requestID+"/reply", payload)
}

func (d *ServerSessionDriver) Update(ctx context.Context, fields UpdateFields) error {
	payload, _ := json.Marshal(fields)
	return d.post(ctx, "/session/"+d.nativeID()+"/update", payload)
}

func (d *ServerSessionDriver) Stop(ctx context.Context, reason string) error {
	d.manager.mu.Lock()
	if d.session.stopped {
		d.manager.mu.Unlock()
		return nil
	}
	d.session.stopped = true
	delete(d.manager.sessions, d.session.nativeID)
	delete(d.manager.pending, d.spec.SessionID)
	d.manager.mu.Unlock()

	close(d.session.events)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, d.baseURL+"/session/"+d.nativeID(), nil)
	if err != nil {
		return err
	}
	resp, err := d.manager.client.Do(req)
	if err != nil {
		return nil // best-effort: server may already be gone
	}
	resp.Body.Close()
	return nil
}

func (d *ServerSessionDriver) Events() <-chan converter.PartialEvent { return d.session.events }

func (d *ServerSessionDriver) AgentSessionID() string { return d.nativeID() }

func (d *ServerSessionDriver) Health(ctx context.Context) error {
	d.manager.mu.Lock()
	started := d.manager.cmd != nil
	d.manager.mu.Unlock()
	if !started {
		return universal.NewError(universal.AgentProcessExited, "shared server not running")
	}
	return nil
}

func (d *ServerSessionDriver) nativeID() string { return d.session.nativeID }

func (d *ServerSessionDriver) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.manager.client.Do(req)
	if err != nil {
		return universal.NewError(universal.AgentProcessExited, fmt.Sprintf("shared server request failed: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return universal.NewError(universal.AgentProcessExited, fmt.Sprintf("shared server returned status %d", resp.StatusCode))
	}
	return nil
}
