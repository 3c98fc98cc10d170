package testsupport

import (
	"path/filepath"
	"testing"

	"tracuu/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pacing and warm-up are zeroed so tests run without sleeping or prompting.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PendingDir = filepath.Join(base, "pending")
	cfgVal.Paths.DoneDir = filepath.Join(base, "done")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Session.CookieFile = filepath.Join(base, "state", "cookies.json")
	cfgVal.Session.WarmUp = false
	cfgVal.Cache.Enabled = false
	cfgVal.Cache.Path = filepath.Join(base, "state", "cache.db")
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Pacing.RowSleepMinSeconds = 0
	cfgVal.Pacing.RowSleepMaxSeconds = 0
	cfgVal.Pacing.LongBreakEveryRows = 0
	cfgVal.Pacing.CheckpointEveryRows = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithCheckpointEvery sets the periodic checkpoint interval in rows.
func WithCheckpointEvery(rows int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pacing.CheckpointEveryRows = rows
	}
}

// WithCacheEnabled turns the resolution cache on for the test.
func WithCacheEnabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}
