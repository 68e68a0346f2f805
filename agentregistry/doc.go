// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentregistry holds the static catalogue of known agent
// kinds: transport, capability flags, supported modes, install
// metadata, model-fetch strategy, and credential environment mapping.
//
// The registry is immutable after [New] returns; every method is safe
// for concurrent use without external locking. Installation status
// ([Registry.List]) is the one thing checked live,
// since agent binaries can be installed, upgraded, or removed out of
// band while the daemon runs.
package agentregistry
