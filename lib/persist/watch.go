// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/sessionmanager"
)

const snapshotInterval = 5 * time.Second

// Wrap starts a background poll of manager's live sessions, saving a
// snapshot of each to store every snapshotInterval, and returns manager
// unchanged so callers keep using it directly. The poll loop runs until
// the returned stop function is called; cmd/agentcored calls it during
// shutdown, after the manager itself has been drained.
func Wrap(manager *sessionmanager.Manager, store *Store, clk clock.Clock, logger *slog.Logger) (*sessionmanager.Manager, func()) {
	ticker := clk.NewTicker(snapshotInterval)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				snapshotAll(manager, store, clk, logger)
			}
		}
	}()

	return manager, func() { stopOnce.Do(func() { close(stop) }) }
}

func snapshotAll(manager *sessionmanager.Manager, store *Store, clk clock.Clock, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	now := clk.Now()
	for _, info := range manager.List() {
		if err := store.SaveSnapshot(ctx, info, now); err != nil {
			logger.Warn("session snapshot failed", "session_id", info.SessionID, "error", err)
		}
	}
}
