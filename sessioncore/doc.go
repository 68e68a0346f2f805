// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessioncore implements the per-session state machine and the
// send/answer/reply pipeline that sits between a agentdriver.Driver, an
// eventlog.Log, and a hitl.Coordinator. sessionmanager owns the map of
// these; httpapi talks to one through its request/response entry points.
package sessioncore
