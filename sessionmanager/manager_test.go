// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionmanager

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/agentcore/agentdriver"
	"github.com/bureau-foundation/agentcore/agentregistry"
	"github.com/bureau-foundation/agentcore/converter"
	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/universal"
)

type fakeDriver struct {
	events   chan converter.PartialEvent
	nativeID string
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
func (d *fakeDriver) AgentSessionID() string                { return d.nativeID }
func (d *fakeDriver) Health(ctx context.Context) error      { return nil }

func testManager(t *testing.T) (*Manager, map[agentregistry.Kind]*fakeDriver) {
	t.Helper()
	registry := agentregistry.New("/usr/local/bin", clock.Fake(time.Unix(0, 0)))
	drivers := make(map[agentregistry.Kind]*fakeDriver)
	builders := make(map[agentregistry.Kind]DriverBuilder)
	for _, kind := range registry.Kinds() {
		kind := kind
		builders[kind] = func(spec agentdriver.Spec) (agentdriver.Driver, error) {
			d := newFakeDriver()
			drivers[kind] = d
			return d, nil
		}
	}
	clk := clock.Fake(time.Unix(0, 0))
	return New(registry, builders, eventlog.Config{}, clk, nil), drivers
}

func TestCreate_DuplicateIDFails(t *testing.T) {
	mgr, _ := testManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Codex}); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Codex})
	assertKind(t, err, universal.SessionAlreadyExists)
}

func TestCreate_UnknownAgentFails(t *testing.T) {
	mgr, _ := testManager(t)
	_, err := mgr.Create(context.Background(), "s1", CreateRequest{Agent: agentregistry.Kind("unknown")})
	assertKind(t, err, universal.UnsupportedAgent)
}

func TestLifecycle_ListCreateGetDeleteGet(t *testing.T) {
	mgr, _ := testManager(t)
	ctx := context.Background()

	if got := mgr.List(); len(got) != 0 {
		t.Fatalf("List before create = %v, want empty", got)
	}

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Codex}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := mgr.Get("s1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := mgr.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := mgr.Get("s1"); err == nil {
		t.Fatal("Get after delete should fail")
	} else {
		assertKind(t, err, universal.SessionNotFound)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	mgr, _ := testManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Codex}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mgr.Delete(ctx, "s1"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	err := mgr.Delete(ctx, "s1")
	assertKind(t, err, universal.SessionNotFound)
}

func TestUpdate_ModelLockedAfterSpawnOnClaude(t *testing.T) {
	mgr, drivers := testManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Claude, Model: "sonnet"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	model := "opus"
	if _, err := mgr.Update(ctx, "s1", agentdriver.UpdateFields{Model: &model}); err != nil {
		t.Fatalf("Update before native id observed should succeed: %v", err)
	}

	drivers[agentregistry.Claude].nativeID = "claude-native-1"

	if _, err := mgr.Update(ctx, "s1", agentdriver.UpdateFields{Model: &model}); err == nil {
		t.Fatal("Update after native id observed should fail")
	} else {
		assertKind(t, err, universal.PermissionDenied)
	}
}

func TestUpdate_ModelAlwaysMutableOnCodex(t *testing.T) {
	mgr, drivers := testManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Codex, Model: "gpt-5"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	drivers[agentregistry.Codex].nativeID = "codex-native-1"

	model := "gpt-5-high"
	if _, err := mgr.Update(ctx, "s1", agentdriver.UpdateFields{Model: &model}); err != nil {
		t.Fatalf("Update on Codex after native id observed should succeed: %v", err)
	}
}

func TestUpdate_VariantRejectedOnNonOpenCode(t *testing.T) {
	mgr, _ := testManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.Codex}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	variant := "high"
	_, err := mgr.Update(ctx, "s1", agentdriver.UpdateFields{Variant: &variant})
	assertKind(t, err, universal.ModeNotSupported)
}

func TestUpdate_VariantAcceptedOnOpenCode(t *testing.T) {
	mgr, _ := testManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "s1", CreateRequest{Agent: agentregistry.OpenCode}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	variant := "high"
	if _, err := mgr.Update(ctx, "s1", agentdriver.UpdateFields{Variant: &variant}); err != nil {
		t.Fatalf("Update variant on OpenCode: %v", err)
	}
}

func assertKind(t *testing.T, err error, want universal.ErrorKind) {
	t.Helper()
	uerr, ok := err.(*universal.Error)
	if !ok {
		t.Fatalf("error %v is not a *universal.Error", err)
	}
	if uerr.Kind != want {
		t.Fatalf("error kind = %v, want %v", uerr.Kind, want)
	}
}
