package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cornucopia/internal/diagnostics"
)

func newClassifyCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "classify [file|-]",
		Short: "Classify simulator diagnostic output",
		Long:  "Reads diagnostic text from a file, or stdin when the file is - or omitted, and lists the matched failure categories.",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.stdin
			if len(args) == 1 && args[0] != "-" {
				fh, err := os.Open(args[0])
				if err != nil {
					return usageError(fmt.Errorf("open diagnostic: %w", err))
				}
				defer fh.Close()
				r = fh
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read diagnostic: %w", err)
			}
			set := diagnostics.Classify(string(data))
			a.metrics.ObserveClassifications(set)

			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, set)
			}
			for _, c := range set {
				printClassification(w, c)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print classifications as JSON")
	return cmd
}
