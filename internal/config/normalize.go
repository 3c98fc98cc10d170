package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeRegistry()
	c.normalizeLookup()
	c.normalizeNames()
	c.normalizeNotifications()
	c.normalizePrefetch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	pending, err := expandPath(c.Paths.PendingDir)
	if err != nil {
		return err
	}
	done, err := expandPath(c.Paths.DoneDir)
	if err != nil {
		return err
	}
	output, err := expandPath(c.Paths.OutputDir)
	if err != nil {
		return err
	}
	logDir, err := expandPath(c.Paths.LogDir)
	if err != nil {
		return err
	}
	state, err := expandPath(c.Paths.StateDir)
	if err != nil {
		return err
	}

	c.Paths.PendingDir = pending
	c.Paths.DoneDir = done
	c.Paths.OutputDir = output
	c.Paths.LogDir = logDir
	c.Paths.StateDir = state
	return nil
}

func (c *Config) normalizeSession() error {
	c.Session.UserAgent = strings.TrimSpace(c.Session.UserAgent)
	if c.Session.UserAgent == "" {
		c.Session.UserAgent = defaultUserAgent
	}

	c.Session.CookieFile = strings.TrimSpace(c.Session.CookieFile)
	if c.Session.CookieFile == "" {
		c.Session.CookieFile = filepath.Join(c.Paths.StateDir, "cookies.json")
		return nil
	}
	expanded, err := expandPath(c.Session.CookieFile)
	if err != nil {
		return err
	}
	c.Session.CookieFile = expanded
	return nil
}

func (c *Config) normalizeCache() error {
	c.Cache.Path = strings.TrimSpace(c.Cache.Path)
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.Paths.StateDir, "resolutions.db")
		return nil
	}
	expanded, err := expandPath(c.Cache.Path)
	if err != nil {
		return err
	}
	c.Cache.Path = expanded
	return nil
}

func (c *Config) normalizeRegistry() {
	c.Registry.MasothueBaseURL = strings.TrimRight(strings.TrimSpace(c.Registry.MasothueBaseURL), "/")
	if c.Registry.MasothueBaseURL == "" {
		c.Registry.MasothueBaseURL = defaultMasothueBaseURL
	}
	c.Registry.TVPLSearchURL = strings.TrimSpace(c.Registry.TVPLSearchURL)
	if c.Registry.TVPLSearchURL == "" {
		c.Registry.TVPLSearchURL = defaultTVPLSearchURL
	}
	if c.Registry.RequestTimeout <= 0 {
		c.Registry.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeLookup() {
	c.Lookup.VitaxURL = strings.TrimSpace(c.Lookup.VitaxURL)
	if c.Lookup.VitaxURL == "" {
		c.Lookup.VitaxURL = defaultVitaxURL
	}
	c.Lookup.VietQRURL = strings.TrimRight(strings.TrimSpace(c.Lookup.VietQRURL), "/")
	if c.Lookup.VietQRURL == "" {
		c.Lookup.VietQRURL = defaultVietQRURL
	}
	if c.Lookup.RequestTimeout <= 0 {
		c.Lookup.RequestTimeout = defaultRequestTimeout
	}
	if c.Lookup.MaxAttempts <= 0 {
		c.Lookup.MaxAttempts = defaultMaxAttempts
	}
	if c.Lookup.BackoffCapSeconds <= 0 {
		c.Lookup.BackoffCapSeconds = defaultBackoffCapSeconds
	}
}

func (c *Config) normalizeNames() {
	if c.Names.ExtraAbbreviations == nil {
		c.Names.ExtraAbbreviations = map[string]string{}
		return
	}
	cleaned := make(map[string]string, len(c.Names.ExtraAbbreviations))
	for short, full := range c.Names.ExtraAbbreviations {
		short = strings.ToUpper(strings.TrimSpace(short))
		full = strings.ToUpper(strings.TrimSpace(full))
		if short == "" || full == "" {
			continue
		}
		cleaned[short] = full
	}
	c.Names.ExtraAbbreviations = cleaned
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(os.Getenv("TRACUU_NTFY_TOPIC"))
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotificationTimeout
	}
}

func (c *Config) normalizePrefetch() {
	if c.Prefetch.Workers <= 0 {
		c.Prefetch.Workers = defaultPrefetchWorkers
	}
	if c.Prefetch.RatePerSecond <= 0 {
		c.Prefetch.RatePerSecond = defaultPrefetchRatePerSecond
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
