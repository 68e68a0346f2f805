// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi is the thin HTTP boundary in front of
// sessionmanager/agentregistry: routing, RFC 7807 Problem Details
// rendering, the SSE event writer with Last-Event-ID resume, bearer
// token admission, and CORS. It is the minimal hand-written surface
// needed to make the Core reachable over the network — not a fully
// generated external API (OpenAPI generation, CLI mirror, SDK), which
// is out of scope.
package httpapi
