package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tracuu/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every pending batch through the fallback chain",
		Long: "Run resolves each row of every pending input file through the tiered\n" +
			"fallback chain, pacing requests, checkpointing periodically, and moving\n" +
			"consumed inputs to the done directory once all artifacts are written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var opts []pipeline.Option
			if skipPreflight {
				opts = append(opts, pipeline.WithSkipPreflight())
			}
			runner, cleanup, err := ctx.buildRunner(cmd, opts...)
			if err != nil {
				return err
			}
			defer cleanup()

			return runner.Run(signalCtx)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip readiness checks before processing")
	return cmd
}

func newPrefetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch",
		Short: "Run the API-only name-recovery pass over pending batches",
		Long: "Prefetch recovers official names and synthesized links for every pending\n" +
			"row through the programmatic lookup APIs only, writing the links artifact\n" +
			"per batch. Inputs stay pending for a later full run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner, cleanup, err := ctx.buildRunner(cmd, pipeline.WithSkipPreflight())
			if err != nil {
				return err
			}
			defer cleanup()

			return runner.Prefetch(signalCtx)
		},
	}
}
