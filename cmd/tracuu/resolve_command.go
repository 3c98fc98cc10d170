package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tracuu/internal/pipeline"
	"tracuu/internal/resolve"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "resolve <tax-identifier>",
		Short: "Resolve a single tax identifier through the fallback chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner, cleanup, err := ctx.buildRunner(cmd, pipeline.WithSkipPreflight())
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := runner.ResolveOne(signalCtx, args[0], name)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(out))
			if !out.OK() {
				return fmt.Errorf("identifier %s did not resolve: %s", out.Identifier, out.ErrorTrail())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Approximate customer name for link synthesis")
	return cmd
}

func renderOutcome(out *resolve.Outcome) string {
	rows := [][]string{
		{"Identifier", out.Identifier},
		{"Status", out.Status},
		{"Source", out.Source},
	}
	if out.Link != "" {
		rows = append(rows, []string{"Link", out.Link})
	}
	if out.APIName != "" {
		rows = append(rows, []string{"Recovered name", fmt.Sprintf("%s (%s)", out.APIName, out.APISource)})
	}
	if trail := out.ErrorTrail(); trail != "" {
		rows = append(rows, []string{"Tier errors", trail})
	}
	if out.Record != nil {
		for _, key := range out.Record.Keys() {
			value, _ := out.Record.Get(key)
			if strings.TrimSpace(value) == "" {
				continue
			}
			rows = append(rows, []string{key, value})
		}
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}
