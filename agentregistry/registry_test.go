// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentregistry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/universal"
)

func TestCapabilities_UnknownAgent(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	_, err := reg.Capabilities(Kind("nonesuch"))
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}

	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.UnsupportedAgent {
		t.Errorf("expected UnsupportedAgent, got %v", err)
	}
}

func TestCapabilities_ClaudeModelLocked(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	caps, err := reg.Capabilities(Claude)
	if err != nil {
		t.Fatalf("Capabilities(Claude) failed: %v", err)
	}
	if caps.ModelMutableAfterSpawn {
		t.Error("expected Claude.ModelMutableAfterSpawn = false")
	}
}

func TestNormalizeMode_DefaultsToBuild(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	mode, err := reg.NormalizeMode(context.Background(), Claude, "")
	if err != nil {
		t.Fatalf("NormalizeMode failed: %v", err)
	}
	if mode != "build" {
		t.Errorf("expected default mode build, got %s", mode)
	}
}

func TestNormalizeMode_Unsupported(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	_, err := reg.NormalizeMode(context.Background(), Claude, "nonexistent")
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.ModeNotSupported {
		t.Errorf("expected ModeNotSupported, got %v", err)
	}
}

func TestNormalizePermissionMode(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	mode, err := reg.NormalizePermissionMode(Claude, "bypass")
	if err != nil {
		t.Fatalf("NormalizePermissionMode failed: %v", err)
	}
	if mode != "bypass" {
		t.Errorf("expected bypass, got %s", mode)
	}

	_, err = reg.NormalizePermissionMode(Amp, "plan")
	var agentErr *universal.Error
	if !errors.As(err, &agentErr) || agentErr.Kind != universal.ModeNotSupported {
		t.Errorf("expected ModeNotSupported for amp/plan, got %v", err)
	}
}

func TestList_NotInstalled(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	statuses := reg.List(context.Background())
	if len(statuses) != len(reg.Kinds()) {
		t.Fatalf("expected %d statuses, got %d", len(reg.Kinds()), len(statuses))
	}
	for _, s := range statuses {
		if s.Installed {
			t.Errorf("expected %s to be reported not installed in empty bin dir", s.Kind)
		}
	}
}

func TestList_InstalledExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claude")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho v1.0.0\n"), 0755); err != nil {
		t.Fatalf("writing fake binary: %v", err)
	}

	reg := New(dir, clock.Real())
	statuses := reg.List(context.Background())

	for _, s := range statuses {
		if s.Kind == Claude {
			if !s.Installed {
				t.Error("expected claude to be reported installed")
			}
			if s.Path != path {
				t.Errorf("expected path %s, got %s", path, s.Path)
			}
			return
		}
	}
	t.Fatal("claude not found in status list")
}

func TestCredentialEnv(t *testing.T) {
	reg := New(t.TempDir(), clock.Real())

	env, err := reg.CredentialEnv(Claude, map[string]string{
		"ANTHROPIC_API_KEY": "sk-test",
		"OPENAI_API_KEY":    "unused",
	})
	if err != nil {
		t.Fatalf("CredentialEnv failed: %v", err)
	}

	if env["ANTHROPIC_API_KEY"] != "sk-test" {
		t.Errorf("expected ANTHROPIC_API_KEY passed through, got %v", env)
	}
	if _, ok := env["OPENAI_API_KEY"]; ok {
		t.Error("expected OPENAI_API_KEY not injected for claude")
	}
}

func TestMergeModes_LiveWinsOnConflict(t *testing.T) {
	static := []Mode{{ID: "build", Name: "Build"}, {ID: "plan", Name: "Plan"}}
	live := []Mode{{ID: "build", Name: "Build (live)"}, {ID: "custom", Name: "Custom"}}

	merged := mergeModes(static, live)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged modes, got %d", len(merged))
	}
	if merged[0].Name != "Build (live)" {
		t.Errorf("expected live entry to win on id conflict, got %s", merged[0].Name)
	}
}
