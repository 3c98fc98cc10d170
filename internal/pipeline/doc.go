// Package pipeline drives batch resolution end to end. A Runner holds
// the process-wide instance lock and walks every pending input file:
// preflight, optional session warm-up, then the per-row fallback chain
// with randomized pacing between rows, periodic checkpoints, final
// artifacts, and input relocation strictly last.
//
// Row failures are recorded in the output and never stop the run.
// Returned errors are process-fatal conditions only: a second running
// instance, failed preflight, unreadable input, or artifact I/O.
//
// Two additional entry points share the Runner's wiring: Prefetch, the
// concurrent API-only pass that fills name-recovery columns without
// the session, and ResolveOne for a single ad hoc identifier.
package pipeline
