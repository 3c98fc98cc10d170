// Package config loads, normalizes, and validates tracuu configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TRACUU_NTFY_TOPIC. The Config type centralizes every knob the pipeline and
// CLI need, allowing input/output directories, registry endpoints, and pacing
// rules to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
