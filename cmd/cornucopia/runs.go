package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cornucopia/pkg/domain"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}
	cmd.AddCommand(newRunsListCmd(a), newRunsShowCmd(a))
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var (
		typeName string
		status   string
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, oldest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.RunFilter
			if typeName != "" {
				t, err := domain.ParseExperimentType(typeName)
				if err != nil {
					return usageError(err)
				}
				filter.Type = t
			}
			filter.Status = domain.RunStatus(status)
			filter.Limit = limit

			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer ledger.Close()
			recs, err := ledger.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTYPE\tSTATUS\tARTIFACT")
			for _, r := range recs {
				artifact := r.ArtifactKey
				if artifact == "" {
					artifact = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Type, r.Status, artifact)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "only runs of this experiment type")
	cmd.Flags().StringVar(&status, "status", "", "only runs with this status")
	cmd.Flags().IntVar(&limit, "limit", 0, "at most this many runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one run record as JSON",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer ledger.Close()
			rec, err := ledger.Get(cmd.Context(), args[0])
			if err != nil {
				return failureError(fmt.Errorf("run %s: %w", args[0], err))
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}
