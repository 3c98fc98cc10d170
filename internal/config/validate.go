package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validatePrefetch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.pending_dir": c.Paths.PendingDir,
		"paths.done_dir":    c.Paths.DoneDir,
		"paths.output_dir":  c.Paths.OutputDir,
		"paths.log_dir":     c.Paths.LogDir,
		"paths.state_dir":   c.Paths.StateDir,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Paths.PendingDir == c.Paths.DoneDir {
		return errors.New("paths.pending_dir and paths.done_dir must differ")
	}
	return nil
}

func (c *Config) validatePacing() error {
	if err := ensurePositiveMap(map[string]int{
		"pacing.row_sleep_min_seconds":  c.Pacing.RowSleepMinSeconds,
		"pacing.row_sleep_max_seconds":  c.Pacing.RowSleepMaxSeconds,
		"pacing.long_break_every_rows":  c.Pacing.LongBreakEveryRows,
		"pacing.long_break_min_seconds": c.Pacing.LongBreakMinSeconds,
		"pacing.long_break_max_seconds": c.Pacing.LongBreakMaxSeconds,
		"pacing.checkpoint_every_rows":  c.Pacing.CheckpointEveryRows,
	}); err != nil {
		return err
	}
	if c.Pacing.RowSleepMaxSeconds < c.Pacing.RowSleepMinSeconds {
		return errors.New("pacing.row_sleep_max_seconds must be >= pacing.row_sleep_min_seconds")
	}
	if c.Pacing.LongBreakMaxSeconds < c.Pacing.LongBreakMinSeconds {
		return errors.New("pacing.long_break_max_seconds must be >= pacing.long_break_min_seconds")
	}
	return nil
}

func (c *Config) validateRegistry() error {
	if err := validateHTTPURL("registry.masothue_base_url", c.Registry.MasothueBaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("registry.tvpl_search_url", c.Registry.TVPLSearchURL); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"registry.request_timeout": c.Registry.RequestTimeout,
	})
}

func (c *Config) validateLookup() error {
	if err := validateHTTPURL("lookup.vitax_url", c.Lookup.VitaxURL); err != nil {
		return err
	}
	if err := validateHTTPURL("lookup.vietqr_url", c.Lookup.VietQRURL); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"lookup.request_timeout":     c.Lookup.RequestTimeout,
		"lookup.max_attempts":        c.Lookup.MaxAttempts,
		"lookup.backoff_cap_seconds": c.Lookup.BackoffCapSeconds,
	})
}

func (c *Config) validateSession() error {
	if strings.TrimSpace(c.Session.UserAgent) == "" {
		return errors.New("session.user_agent must be set")
	}
	if strings.TrimSpace(c.Session.CookieFile) == "" {
		return errors.New("session.cookie_file must be set")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path must be set when cache is enabled")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validatePrefetch() error {
	if err := ensurePositiveMap(map[string]int{
		"prefetch.workers": c.Prefetch.Workers,
	}); err != nil {
		return err
	}
	if c.Prefetch.RatePerSecond <= 0 {
		return errors.New("prefetch.rate_per_second must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return fmt.Errorf("%s must start with http:// or https://", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
