// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionmanager owns the session map keyed by client-provided
// session id: create, update, delete, get, list, and the per-agent
// update constraints (model-lock-after-spawn for Claude/Amp, variant
// support for OpenCode only).
package sessionmanager
