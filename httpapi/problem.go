// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/agentcore/universal"
)

// problemDetails is an RFC 7807 Problem Details document.
type problemDetails struct {
	Type    string                 `json:"type"`
	Title   string                 `json:"title"`
	Status  int                    `json:"status"`
	Detail  string                 `json:"detail,omitempty"`
	Context universal.ErrorContext `json:"context,omitempty"`
}

// writeError renders err as a Problem Details document. If err is not
// a *universal.Error, it is wrapped as an opaque AgentProcessExited
// (500) rather than leaking an internal error string as the "kind".
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var uerr *universal.Error
	if !errors.As(err, &uerr) {
		uerr = universal.NewError(universal.AgentProcessExited, err.Error())
	}

	problem := problemDetails{
		Type:    uerr.Kind.URN(),
		Title:   string(uerr.Kind),
		Status:  uerr.Kind.HTTPStatus(),
		Detail:  uerr.Message,
		Context: uerr.Context,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	if encodeErr := json.NewEncoder(w).Encode(problem); encodeErr != nil {
		logger.Warn("writing problem details failed", "error", encodeErr)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("writing json response failed", "error", err)
	}
}
