package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[openai]
api_key = "test-key"
`, filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func extractConversationID(t *testing.T, createOutput string) string {
	t.Helper()
	for _, line := range strings.Split(createOutput, "\n") {
		if strings.HasPrefix(line, "Created conversation ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Created conversation "))
		}
	}
	t.Fatalf("no conversation id in output: %q", createOutput)
	return ""
}

func TestConversationLifecycleCommands(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, cfgPath, "conversation", "create",
		"--title", "Sprint Planning",
		"--platform", "zoom",
		"--participant", "Dana <dana@example.com>")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	id := extractConversationID(t, out)
	if !strings.Contains(out, "Added 1 participant(s)") {
		t.Fatalf("create output = %q", out)
	}

	out, err = runCommand(t, cfgPath, "conversation", "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sprint Planning") || !strings.Contains(out, "pending") {
		t.Fatalf("list output = %q", out)
	}

	out, err = runCommand(t, cfgPath, "conversation", "show", id)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Dana <dana@example.com>") {
		t.Fatalf("show output missing participant: %q", out)
	}
	if !strings.Contains(out, "Transcript:  none") {
		t.Fatalf("show output missing transcript line: %q", out)
	}

	out, err = runCommand(t, cfgPath, "conversation", "search", "sprint")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sprint Planning") {
		t.Fatalf("search output = %q", out)
	}

	out, err = runCommand(t, cfgPath, "conversation", "stats")
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending") {
		t.Fatalf("stats output = %q", out)
	}

	out, err = runCommand(t, cfgPath, "conversation", "delete", id)
	if err != nil {
		t.Fatalf("delete: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Deleted conversation "+id) {
		t.Fatalf("delete output = %q", out)
	}

	if _, err = runCommand(t, cfgPath, "conversation", "show", id); err == nil {
		t.Fatal("expected show to fail after delete")
	}
}

func TestConversationCreateRequiresTitle(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, cfgPath, "conversation", "create"); err == nil {
		t.Fatal("expected error without --title")
	}
}

func TestConversationAddParticipantCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, cfgPath, "conversation", "create", "--title", "Retro")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	id := extractConversationID(t, out)

	out, err = runCommand(t, cfgPath, "conversation", "add-participant", id,
		"--name", "Lee", "--email", "lee@example.com", "--organizer")
	if err != nil {
		t.Fatalf("add-participant: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Lee") {
		t.Fatalf("add-participant output = %q", out)
	}

	out, err = runCommand(t, cfgPath, "conversation", "show", id)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "(organizer)") {
		t.Fatalf("show output missing organizer flag: %q", out)
	}

	if _, err = runCommand(t, cfgPath, "conversation", "add-participant", "missing", "--name", "X"); err == nil {
		t.Fatal("expected error for unknown conversation")
	}
}

func TestParseParticipantSpecs(t *testing.T) {
	participants, err := parseParticipantSpecs([]string{"Dana <dana@example.com>", "Observer", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("participants = %v", participants)
	}
	if participants[0].Name != "Dana" || participants[0].Email != "dana@example.com" {
		t.Fatalf("first participant = %+v", participants[0])
	}
	if participants[1].Name != "Observer" || participants[1].Email != "" {
		t.Fatalf("second participant = %+v", participants[1])
	}

	if _, err := parseParticipantSpecs([]string{"Broken <not-an-email"}); err == nil {
		t.Fatal("expected error for malformed spec")
	}
}

func TestConfigValidateCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, cfgPath, "config", "validate", "--path", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("validate output = %q", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	target := filepath.Join(t.TempDir(), "loom", "config.toml")

	out, err := runCommand(t, cfgPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatalf("expected sample config at %s: %v", target, statErr)
	}

	if _, err = runCommand(t, cfgPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if out, err = runCommand(t, cfgPath, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init --overwrite: %v\n%s", err, out)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, cfgPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v\n%s", err, out)
	}
	if !strings.Contains(out, "not configured") {
		t.Fatalf("test-notify output = %q", out)
	}
}
