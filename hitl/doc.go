// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hitl implements the human-in-the-loop coordinator: per-session
// bookkeeping of open questions and open permission prompts, and the
// reply/reject/abandon operations that resolve them.
//
// The coordinator never talks to a driver directly; sessioncore indexes
// a question or permission the moment the driver surfaces it, before
// the corresponding event reaches the event log, so a client reading
// that event can immediately reply without racing the index.
package hitl
