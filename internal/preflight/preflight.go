package preflight

import (
	"context"

	"tracuu/internal/config"
)

// Result reports the outcome of a single preflight check. Optional
// checks never block a run; they surface degraded sources the fallback
// chain can route around.
type Result struct {
	Name     string
	Optional bool
	Passed   bool
	Detail   string
}

// MinFreeBytes is the free-space floor required on the output
// filesystem before a batch run starts.
const MinFreeBytes = 256 * 1024 * 1024

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Working directories (always checked)
	results = append(results, CheckDirectoryAccess("Pending directory", cfg.Paths.PendingDir))
	results = append(results, CheckDirectoryAccess("Done directory", cfg.Paths.DoneDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Free space on the artifact filesystem
	results = append(results, CheckFreeSpace(cfg.Paths.OutputDir, MinFreeBytes))

	// Name-lookup APIs. A dead endpoint degrades the recovery tier but
	// the search tiers still run, so these never block the batch.
	results = append(results, CheckEndpoint(ctx, "Vitax API", cfg.Lookup.VitaxURL))
	results = append(results, CheckEndpoint(ctx, "VietQR API", cfg.Lookup.VietQRURL))

	// Notifications (when configured)
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNotifications(ctx, cfg))
	}

	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Optional && !result.Passed {
			return true
		}
	}
	return false
}
