// Package services defines shared utilities consumed by the resolution tiers
// and external registry integrations.
//
// Key responsibilities:
//   - Context helpers that stamp row sequence numbers, identifiers, tier names,
//     and run correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classes (retryable faults vs structural failures).
//
// Use these helpers when wiring new tier or source logic so operational
// behaviour (error handling, observability, retries) stays uniform across the
// pipeline.
package services
