// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventlog implements the per-session, append-only,
// monotonically-numbered event buffer with fan-out to pollers and SSE
// subscribers.
//
// A [Log] is multi-reader, single-writer: exactly one goroutine (the
// session's converter pipeline) calls [Log.Append]; any number of
// goroutines call [Log.Range] or [Log.Subscribe] concurrently. A slow
// subscriber is dropped with an overflow signal rather than allowed to
// block the writer — see [Log.Subscribe].
package eventlog
