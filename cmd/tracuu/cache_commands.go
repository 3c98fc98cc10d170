package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"tracuu/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Resolution cache maintenance",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))

	return cacheCmd
}

func (c *commandContext) withCache(fn func(*cache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open resolution cache: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached resolution counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *cache.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cache: %s (%d bytes)\n", stats.Path, stats.SizeBytes)
				if stats.Total == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}

				statuses := make([]string, 0, len(stats.ByStatus))
				for status := range stats.ByStatus {
					statuses = append(statuses, status)
				}
				sort.Strings(statuses)

				rows := make([][]string, 0, len(statuses)+2)
				for _, status := range statuses {
					rows = append(rows, []string{status, strconv.Itoa(stats.ByStatus[status])})
				}
				rows = append(rows,
					[]string{"resolved", strconv.Itoa(stats.Resolved)},
					[]string{"total", strconv.Itoa(stats.Total)},
				)
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Entries"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every cached resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *cache.Store) error {
				removed, err := store.Purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached resolutions\n", removed)
				return nil
			})
		},
	}
}
