// Package preflight provides readiness checks for the directories,
// disk space, and external services a batch run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before processing pending files.
//     If any required check fails, the run aborts before the first
//     row rather than failing hours into a batch.
//   - The CLI "tracuu config validate" command renders the same
//     results so an operator can confirm the environment by hand.
//
// Directory and disk-space checks are required. API reachability and
// notification checks are optional because the resolution chain
// degrades tier by tier when a single source is down.
package preflight
