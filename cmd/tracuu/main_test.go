package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
pending_dir = %q
done_dir = %q
output_dir = %q
log_dir = %q
state_dir = %q

[session]
warm_up = false

[cache]
enabled = true
path = %q

[logging]
format = "json"
level = "error"
`,
		filepath.Join(base, "pending"),
		filepath.Join(base, "done"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"),
		filepath.Join(base, "state", "cache.db"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func TestCLIVersion(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "tracuu")
}

func TestCLICacheStatsAndPurge(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Cache is empty")

	out, _, err = runCLI(t, []string{"cache", "purge"}, env.configPath)
	if err != nil {
		t.Fatalf("cache purge: %v", err)
	}
	requireContains(t, out, "Purged 0 cached resolutions")
}

func TestCLINotifyTestWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "No ntfy topic configured")
}

func TestCLIResolveRejectsUnusableIdentifier(t *testing.T) {
	env := setupCLITestEnv(t)

	// Letters normalize to an empty identifier, so every tier fails
	// before any network or session work.
	out, _, err := runCLI(t, []string{"resolve", "abc", "--name", ""}, env.configPath)
	if err == nil {
		t.Fatal("resolve succeeded for an unusable identifier")
	}
	requireContains(t, err.Error(), "did not resolve")
	requireContains(t, out, "error")
}

func TestCLIRunWithEmptyPendingDir(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"run", "--skip-preflight"}, env.configPath); err != nil {
		t.Fatalf("run with no pending batches: %v", err)
	}
}
