// Package browse owns the single browser-like session the registry
// clients share.
//
// The session serializes page loads behind one mutex (the registries
// tolerate exactly one concurrent visitor per cookie identity), keeps
// cookies across runs, and detects bot-mitigation interstitials. When a
// challenge appears mid-fetch the session suspends on the operator gate
// and re-evaluates the same fetch once after acknowledgment; a
// challenge that survives the pause fails the fetch as blocked.
package browse
