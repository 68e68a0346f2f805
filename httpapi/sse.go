// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/universal"
)

// writeSSE streams log's events starting after offset until the
// client disconnects or the subscription overflows. The SSE id: field
// mirrors the event id so clients can resume with Last-Event-ID.
func writeSSE(w http.ResponseWriter, r *http.Request, sessionID string, log *eventlog.Log) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing")
	}

	offset, err := parseOffset(r)
	if err != nil {
		return err
	}

	sub, err := log.Subscribe(offset)
	if err != nil {
		return err
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := writeSSEEvent(w, event); err != nil {
				return err
			}
			flusher.Flush()
		case <-sub.Overflow:
			return universal.NewError(universal.StreamError, "subscriber fell behind the event log and was dropped").
				WithContext(universal.ErrorContext{SessionID: sessionID})
		case <-r.Context().Done():
			return nil
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event universal.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.ID, payload)
	return err
}

// parseOffset reads the resume offset from either the Last-Event-ID
// header (set automatically by browser EventSource on reconnect) or an
// explicit ?offset= query parameter, preferring Last-Event-ID.
func parseOffset(r *http.Request) (uint64, error) {
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		return strconv.ParseUint(id, 10, 64)
	}
	if q := r.URL.Query().Get("offset"); q != "" {
		return strconv.ParseUint(q, 10, 64)
	}
	return 0, nil
}
