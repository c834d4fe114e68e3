package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cornucopia/internal/validation"
	"cornucopia/pkg/domain"
)

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <script.py>",
		Short: "Check a protocol script against the platform whitelist and bounds",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return usageError(fmt.Errorf("read script: %w", err))
			}
			report := domain.Report{Findings: validation.CheckScriptText(string(data))}
			a.logger.Debug("script validated", zap.String("path", args[0]), zap.Int("findings", len(report.Findings)))

			w := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(w, report); err != nil {
					return err
				}
			} else if report.Empty() {
				fmt.Fprintln(w, "ok: no findings")
			} else {
				for _, f := range report.Findings {
					fmt.Fprintf(w, "[%s] %s\n", f.Severity, f)
				}
			}
			if report.HasBlocking() {
				return failureError(domain.ValidationError{Report: report})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
