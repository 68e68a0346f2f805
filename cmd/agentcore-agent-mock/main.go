// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// agentcore-agent-mock stands in for a real Claude Code binary during
// agentdriver integration tests. It speaks the same stream-json wire
// protocol converter/claude parses: a system/init line carrying a
// session id, then for every line of input an assistant text message,
// a tool_use that must clear a control_request permission round trip,
// a tool result, and a result/success turn completion. No external
// process, network access, or API key is involved.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

func main() {
	sessionID := uuid.NewString()
	out := &lineWriter{w: os.Stdout}

	out.write(map[string]any{
		"type":       "system",
		"subtype":    "init",
		"session_id": sessionID,
		"message":    "agentcore-agent-mock starting",
	})

	pending := newPendingReplies()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var turns sync.WaitGroup
	turn := 0
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		if looksLikeControlResponse(line) {
			resolveControlResponse(line, pending)
			continue
		}
		turn++
		turns.Add(1)
		go func(n int) {
			defer turns.Done()
			runTurn(out, sessionID, n, pending)
		}(turn)
	}
	turns.Wait()
}

func resolveControlResponse(line []byte, pending *pendingReplies) {
	var msg struct {
		RequestID string `json:"request_id"`
		Response  struct {
			Behavior string `json:"behavior"`
		} `json:"response"`
	}
	if json.Unmarshal(line, &msg) != nil {
		return
	}
	pending.resolve(msg.RequestID, msg.Response.Behavior)
}

func runTurn(out *lineWriter, sessionID string, turn int, pending *pendingReplies) {
	out.write(map[string]any{
		"type":       "assistant",
		"subtype":    "text",
		"session_id": sessionID,
		"text":       fmt.Sprintf("mock turn %d: reading the requested file", turn),
	})

	toolUseID := fmt.Sprintf("mock-tool-%d", turn)
	out.write(map[string]any{
		"type":       "assistant",
		"subtype":    "tool_use",
		"session_id": sessionID,
		"tool_use_id": toolUseID,
		"name":       "Read",
		"input":      map[string]string{"file_path": "/workspace/mock.txt"},
	})

	requestID := fmt.Sprintf("mock-request-%d", turn)
	reply := pending.await(requestID, func() {
		out.write(map[string]any{
			"type":       "control_request",
			"request_id": requestID,
			"session_id": sessionID,
			"request": map[string]any{
				"subtype":   "can_use_tool",
				"tool_name": "Read",
				"input":     map[string]string{"file_path": "/workspace/mock.txt"},
			},
		})
	})

	isError := reply.behavior != "allow"
	content := "mock file contents"
	if isError {
		content = "permission denied"
	}
	out.write(map[string]any{
		"type":        "tool",
		"subtype":     "result",
		"session_id":  sessionID,
		"tool_use_id": toolUseID,
		"content":     content,
		"is_error":    isError,
	})

	out.write(map[string]any{
		"type":       "result",
		"subtype":    "success",
		"session_id": sessionID,
		"num_turns":  turn,
	})
}

// lineWriter serializes concurrent writers onto stdout, one JSON
// object per line, matching the stream-json protocol's framing.
type lineWriter struct {
	mu sync.Mutex
	w  *os.File
}

func (l *lineWriter) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\n", data)
}

type controlReply struct {
	behavior string
}

// pendingReplies matches control_response lines arriving on stdin back
// to the control_request that solicited them, by request id.
type pendingReplies struct {
	mu      sync.Mutex
	waiting map[string]chan controlReply
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{waiting: make(map[string]chan controlReply)}
}

// await registers requestID, invokes send to emit the control_request
// (after registration, so no reply can race ahead of the wait), and
// blocks for the matching control_response.
func (p *pendingReplies) await(requestID string, send func()) controlReply {
	ch := make(chan controlReply, 1)
	p.mu.Lock()
	p.waiting[requestID] = ch
	p.mu.Unlock()

	send()

	reply := <-ch

	p.mu.Lock()
	delete(p.waiting, requestID)
	p.mu.Unlock()

	return reply
}

func (p *pendingReplies) resolve(requestID, behavior string) {
	p.mu.Lock()
	ch, ok := p.waiting[requestID]
	p.mu.Unlock()
	if !ok {
		return
	}
	ch <- controlReply{behavior: behavior}
}

func looksLikeControlResponse(line []byte) bool {
	var envelope struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(line, &envelope) == nil && envelope.Type == "control_response"
}
