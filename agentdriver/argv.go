// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

// ClaudeArgv composes argv for Claude Code: stream-json output,
// verbose, persistent stdin (no trailing prompt positional so the
// driver can feed turns via stdin for the session's lifetime), the
// permission-bypass flag when PermissionMode is "bypass", and the model
// flag (accepted only at spawn per the registry's
// ModelMutableAfterSpawn=false). No resume flag is composed: Spec
// carries no native session id, so every spawn starts a new thread.
func ClaudeArgv(binaryPath string, spec Spec) []string {
	args := []string{"--output-format", "stream-json", "--input-format", "stream-json", "--verbose", "--print"}

	if spec.Model != "" {
		args = append(args, "--model", spec.Model)
	}
	if spec.PermissionMode == "bypass" {
		args = append(args, "--dangerously-skip-permissions")
	}
	if spec.AgentMode == "plan" {
		args = append(args, "--permission-mode", "plan")
	}

	return args
}

// CodexArgv composes argv for Codex's persistent JSONL exec mode.
func CodexArgv(binaryPath string, spec Spec) []string {
	args := []string{"exec", "--json", "--experimental-json"}

	if spec.Model != "" {
		args = append(args, "--model", spec.Model)
	}
	if spec.PermissionMode == "bypass" {
		args = append(args, "--dangerously-bypass-approvals-and-sandbox")
	} else if spec.AgentMode == "plan" {
		args = append(args, "--sandbox", "read-only")
	}

	return args
}

// AmpArgv composes argv for Amp's streaming exec mode.
func AmpArgv(binaryPath string, spec Spec) []string {
	args := []string{"--stream-json"}

	if spec.PermissionMode == "bypass" {
		args = append(args, "--yes")
	}

	return args
}
