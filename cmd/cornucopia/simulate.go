package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cornucopia/internal/diagnostics"
	"cornucopia/pkg/domain"
)

type simulationView struct {
	Result          domain.SimulationResult      `json:"result"`
	Classifications []domain.ErrorClassification `json:"classifications"`
}

func newSimulateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "simulate <script.py>",
		Short: "Run the simulator on a script and classify the outcome",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := a.cfg.Runner()
			runner.Logger = a.logger
			res := runner.Simulate(cmd.Context(), args[0])
			set := diagnostics.Classify(res.Diagnostic)
			a.metrics.ObserveClassifications(set)
			a.logger.Info("simulation finished",
				zap.String("path", args[0]),
				zap.Bool("success", res.Success),
				zap.Int("exit_code", res.ExitCode),
				zap.Strings("category", categoryNames(set)),
			)

			w := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(w, simulationView{Result: res, Classifications: set}); err != nil {
					return err
				}
			} else {
				status := "passed"
				if !res.Success {
					status = fmt.Sprintf("failed (exit %d)", res.ExitCode)
				}
				fmt.Fprintf(w, "simulation %s in %s\n", status, res.Duration.Round(time.Millisecond))
				for _, c := range set {
					printClassification(w, c)
				}
			}
			if !res.Success {
				return failureError(domain.SimulationError{Result: res, Classifications: set})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func categoryNames(set []domain.ErrorClassification) []string {
	out := make([]string, 0, len(set))
	for _, c := range domain.Categories(set) {
		out = append(out, string(c))
	}
	return out
}
