// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/agentregistry"
	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/sessionmanager"
	"github.com/bureau-foundation/agentcore/universal"
)

type fakeDriver struct {
	events chan converter.PartialEvent
}

func newFakeDriver() *fakeDriver { return &fakeDriver{events: make(chan converter.PartialEvent, 16)} }

func (d *fakeDriver) Start(ctx context.Context) error                       { return nil }
func (d *fakeDriver) Send(ctx context.Context, msg universal.Message) error { return nil }
func (d *fakeDriver) AnswerQuestion(ctx context.Context, requestID string, answers [][]string) error {
	return nil
}
func (d *fakeDriver) RejectQuestion(ctx context.Context, requestID string) error { return nil }
func (d *fakeDriver) ReplyPermission(ctx context.Context, requestID string, reply universal.PermissionReply) error {
	return nil
}
func (d *fakeDriver) Update(ctx context.Context, fields agentdriver.UpdateFields) error { return nil }
func (d *fakeDriver) Stop(ctx context.Context, reason string) error {
	close(d.events)
	return nil
}
func (d *fakeDriver) Events() <-chan converter.PartialEvent { return d.events }
func (d *fakeDriver) AgentSessionID() string                { return "" }
func (d *fakeDriver) Health(ctx context.Context) error      { return nil }

func TestWrapSnapshotsSessionsOnTick(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	registry := agentregistry.New("/usr/local/bin", clk)
	builders := map[agentregistry.Kind]sessionmanager.DriverBuilder{
		agentregistry.Claude: func(spec agentdriver.Spec) (agentdriver.Driver, error) {
			return newFakeDriver(), nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := sessionmanager.New(registry, builders, eventlog.Config{}, clk, logger)

	ctx := context.Background()
	if _, err := manager.Create(ctx, "s1", sessionmanager.CreateRequest{Agent: agentregistry.Claude}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	wrapped, stop := Wrap(manager, store, clk, logger)
	defer stop()
	if wrapped != manager {
		t.Fatal("Wrap returned a different manager than it was given")
	}

	clk.Advance(snapshotInterval)
	deadline := time.Now().Add(time.Second)
	for {
		snapshots, err := store.ListSnapshots(ctx)
		if err != nil {
			t.Fatalf("ListSnapshots: %v", err)
		}
		if len(snapshots) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never written, got %d rows", len(snapshots))
		}
		time.Sleep(time.Millisecond)
	}
}
