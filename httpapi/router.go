// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/agentregistry"
	"github.com/bureau-foundation/agentcore/sessionmanager"
	"github.com/bureau-foundation/agentcore/universal"
)

// Installer installs an agent binary on demand. Implemented by
// cmd/agentcored's install pipeline; kept as an interface here so
// httpapi has no knowledge of download URLs or archive formats.
type Installer interface {
	Install(ctx context.Context, kind agentregistry.Kind, reinstall bool) (InstallResult, error)
}

// InstallResult is the response body for POST /v1/agents/{id}/install.
type InstallResult struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Changed   bool   `json:"changed"`
}

// NewRouter builds the full HTTP surface over registry/manager,
// wrapped with bearer-token admission and CORS.
func NewRouter(registry *agentregistry.Registry, manager *sessionmanager.Manager, installer Installer, auth AuthConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	mux := http.NewServeMux()
	h := &handler{registry: registry, manager: manager, installer: installer, logger: logger}

	mux.HandleFunc("GET /v1/agents", h.listAgents)
	mux.HandleFunc("POST /v1/agents/{id}/install", h.installAgent)
	mux.HandleFunc("GET /v1/agents/{id}/modes", h.agentModes)

	mux.HandleFunc("POST /v1/sessions/{id}", h.createSession)
	mux.HandleFunc("PATCH /v1/sessions/{id}", h.updateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.deleteSession)
	mux.HandleFunc("GET /v1/sessions", h.listSessions)
	mux.HandleFunc("POST /v1/sessions/{id}/messages", h.sendMessage)
	mux.HandleFunc("GET /v1/sessions/{id}/events", h.rangeEvents)
	mux.HandleFunc("GET /v1/sessions/{id}/events/sse", h.streamEvents)
	mux.HandleFunc("POST /v1/sessions/{id}/questions/{qid}/reply", h.replyQuestion)
	mux.HandleFunc("POST /v1/sessions/{id}/questions/{qid}/reject", h.rejectQuestion)
	mux.HandleFunc("POST /v1/sessions/{id}/permissions/{pid}/reply", h.replyPermission)

	return withAuth(auth, logger, mux)
}

type handler struct {
	registry  *agentregistry.Registry
	manager   *sessionmanager.Manager
	installer Installer
	logger    *slog.Logger
}

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, struct {
		Agents []agentregistry.AgentStatus `json:"agents"`
	}{h.registry.List(r.Context())})
}

func (h *handler) installAgent(w http.ResponseWriter, r *http.Request) {
	kind := agentregistry.Kind(r.PathValue("id"))
	if _, ok := h.registry.Entry(kind); !ok {
		writeError(w, h.logger, universal.NewError(universal.UnsupportedAgent, "unknown agent").
			WithContext(universal.ErrorContext{Agent: string(kind)}))
		return
	}

	var body struct {
		Reinstall bool `json:"reinstall"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, h.logger, universal.NewError(universal.InvalidRequest, "malformed request body"))
			return
		}
	}

	result, err := h.installer.Install(r.Context(), kind, body.Reinstall)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *handler) agentModes(w http.ResponseWriter, r *http.Request) {
	kind := agentregistry.Kind(r.PathValue("id"))
	modes, err := h.registry.Modes(r.Context(), kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct {
		Modes []agentregistry.Mode `json:"modes"`
	}{modes})
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var body struct {
		Agent          string `json:"agent"`
		AgentMode      string `json:"agentMode"`
		PermissionMode string `json:"permissionMode"`
		Model          string `json:"model"`
		Variant        string `json:"variant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, universal.NewError(universal.InvalidRequest, "malformed request body"))
		return
	}

	result, err := h.manager.Create(r.Context(), sessionID, sessionmanager.CreateRequest{
		Agent:          agentregistry.Kind(body.Agent),
		AgentMode:      body.AgentMode,
		PermissionMode: body.PermissionMode,
		Model:          body.Model,
		Variant:        body.Variant,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *handler) updateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var body struct {
		AgentMode      *string `json:"agentMode"`
		PermissionMode *string `json:"permissionMode"`
		Model          *string `json:"model"`
		Variant        *string `json:"variant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, universal.NewError(universal.InvalidRequest, "malformed request body"))
		return
	}

	info, err := h.manager.Update(r.Context(), sessionID, agentdriver.UpdateFields{
		AgentMode:      body.AgentMode,
		PermissionMode: body.PermissionMode,
		Model:          body.Model,
		Variant:        body.Variant,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, info)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, info)
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct{}{})
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, struct {
		Sessions []sessionmanager.Info `json:"sessions"`
	}{h.manager.List()})
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message universal.Message `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, universal.NewError(universal.InvalidRequest, "malformed request body"))
		return
	}

	if err := h.manager.Send(r.Context(), r.PathValue("id"), body.Message); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct {
		Accepted bool `json:"accepted"`
	}{true})
}

func (h *handler) rangeEvents(w http.ResponseWriter, r *http.Request) {
	log, err := h.manager.Log(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	offset, _ := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, hasMore, err := log.Range(offset, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct {
		Events  []universal.Event `json:"events"`
		HasMore bool              `json:"hasMore"`
	}{events, hasMore})
}

func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	log, err := h.manager.Log(sessionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := writeSSE(w, r, sessionID, log); err != nil {
		h.logger.Warn("sse stream ended with error", "session_id", sessionID, "error", err)
	}
}

func (h *handler) replyQuestion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers [][]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, universal.NewError(universal.InvalidRequest, "malformed request body"))
		return
	}

	err := h.manager.AnswerQuestion(r.Context(), r.PathValue("id"), r.PathValue("qid"), body.Answers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct{}{})
}

func (h *handler) rejectQuestion(w http.ResponseWriter, r *http.Request) {
	err := h.manager.RejectQuestion(r.Context(), r.PathValue("id"), r.PathValue("qid"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct{}{})
}

func (h *handler) replyPermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reply universal.PermissionReply `json:"reply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, universal.NewError(universal.InvalidRequest, "malformed request body"))
		return
	}

	err := h.manager.ReplyPermission(r.Context(), r.PathValue("id"), r.PathValue("pid"), body.Reply)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct{}{})
}
