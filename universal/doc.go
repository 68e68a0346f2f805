// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package universal defines the schema every agent backend is translated
// into and out of: messages sent to an agent, events read back from one,
// and the human-in-the-loop question/permission shapes that sit between
// them.
//
// Converters (package converter/*) are the only code that produces
// [Event] values from native agent output and consumes [Message] values
// to build native agent input. Everything above the converter boundary —
// the event log, the session core, the HTTP layer — operates purely in
// terms of these types and never inspects a native payload directly.
package universal
