// Package cache persists terminal resolution outcomes in a local SQLite
// database keyed by canonical identifier.
//
// A batch run consults the cache before driving the fallback chain: a
// previously resolved identifier is merged straight into the output row
// with no network work. Failed outcomes are saved too, for statistics,
// but are never replayed — a failed identifier gets a fresh attempt on
// every run.
//
// The cache is enabled by default and lives under the state directory
// (config `[cache]`). `tracuu cache stats` and `tracuu cache purge`
// inspect and reset it.
package cache
