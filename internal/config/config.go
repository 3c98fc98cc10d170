package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	PendingDir string `toml:"pending_dir"`
	DoneDir    string `toml:"done_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
}

// Pacing contains timing configuration between processed rows.
type Pacing struct {
	RowSleepMinSeconds  int `toml:"row_sleep_min_seconds"`
	RowSleepMaxSeconds  int `toml:"row_sleep_max_seconds"`
	LongBreakEveryRows  int `toml:"long_break_every_rows"`
	LongBreakMinSeconds int `toml:"long_break_min_seconds"`
	LongBreakMaxSeconds int `toml:"long_break_max_seconds"`
	CheckpointEveryRows int `toml:"checkpoint_every_rows"`
}

// Registry contains external registry endpoints driven through the
// interactive session.
type Registry struct {
	MasothueBaseURL string `toml:"masothue_base_url"`
	TVPLSearchURL   string `toml:"tvpl_search_url"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// Lookup contains the programmatic name-lookup API endpoints and their
// retry discipline.
type Lookup struct {
	VitaxURL          string `toml:"vitax_url"`
	VietQRURL         string `toml:"vietqr_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	MaxAttempts       int    `toml:"max_attempts"`
	BackoffCapSeconds int    `toml:"backoff_cap_seconds"`
}

// Session contains interactive session behavior.
type Session struct {
	UserAgent  string `toml:"user_agent"`
	CookieFile string `toml:"cookie_file"`
	WarmUp     bool   `toml:"warm_up"`
}

// Names contains display-name handling for link synthesis.
type Names struct {
	ExpandAbbreviations bool              `toml:"expand_abbreviations"`
	ExtraAbbreviations  map[string]string `toml:"extra_abbreviations"`
}

// Cache contains the resolution cache store settings.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Challenge      bool   `toml:"challenge"`
	BatchComplete  bool   `toml:"batch_complete"`
	Errors         bool   `toml:"errors"`
}

// Prefetch contains the API-only concurrent pass settings.
type Prefetch struct {
	Workers       int     `toml:"workers"`
	RatePerSecond float64 `toml:"rate_per_second"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the resolution pipeline.
//
// Configuration sections by subsystem:
//   - Paths: pending/done input directories, output artifacts, logs, state
//   - Pacing: randomized sleeps, long breaks, and checkpoint cadence
//   - Registry: session-driven registry endpoints and page timeout
//   - Lookup: programmatic name-lookup APIs and their retry/backoff policy
//   - Session: user agent, cookie persistence, warm-up behavior
//   - Names: abbreviation expansion for display names
//   - Cache: sqlite resolution cache
//   - Notifications: ntfy push notification settings
//   - Prefetch: worker count and rate limit for the API-only pass
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pacing        Pacing        `toml:"pacing"`
	Registry      Registry      `toml:"registry"`
	Lookup        Lookup        `toml:"lookup"`
	Session       Session       `toml:"session"`
	Names         Names         `toml:"names"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Prefetch      Prefetch      `toml:"prefetch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tracuu/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/tracuu/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tracuu.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.PendingDir, c.Paths.DoneDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RegistryTimeout returns the bounded wait for session-driven page loads.
func (c *Config) RegistryTimeout() time.Duration {
	return time.Duration(c.Registry.RequestTimeout) * time.Second
}

// LookupTimeout returns the bounded wait for programmatic API calls.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Lookup.RequestTimeout) * time.Second
}

// BackoffCap returns the ceiling applied to retry waits.
func (c *Config) BackoffCap() time.Duration {
	return time.Duration(c.Lookup.BackoffCapSeconds) * time.Second
}

// RowSleepRange returns the bounds for randomized sleeps between rows.
func (c *Config) RowSleepRange() (time.Duration, time.Duration) {
	return time.Duration(c.Pacing.RowSleepMinSeconds) * time.Second,
		time.Duration(c.Pacing.RowSleepMaxSeconds) * time.Second
}

// LongBreakRange returns the bounds for the periodic long pause.
func (c *Config) LongBreakRange() (time.Duration, time.Duration) {
	return time.Duration(c.Pacing.LongBreakMinSeconds) * time.Second,
		time.Duration(c.Pacing.LongBreakMaxSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
