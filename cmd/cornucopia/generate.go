package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cornucopia/internal/core"
	"cornucopia/pkg/domain"
)

type generateFlags struct {
	typeHint    string
	simulate    bool
	asJSON      bool
	printScript bool
	file        string
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [text...]",
		Short: "Synthesize a protocol from a free-text request",
		Long: `Runs the full pipeline: extraction, the policy gate, synthesis,
validation and archiving, then optionally the simulator.

With --file, every non-blank line of the file (or - for stdin) is one
request and requests run concurrently.`,
		Example: `  cornucopia generate "serial dilution with 8 steps at 1:3"
  cornucopia generate --type pcr_setup --simulate "24 reactions, 25 µL"
  cornucopia generate --file requests.txt --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd, args, f)
		},
	}
	cmd.Flags().StringVar(&f.typeHint, "type", "", "experiment type, skipping classification")
	cmd.Flags().BoolVar(&f.simulate, "simulate", false, "run the simulator on the archived script")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print outcomes as JSON")
	cmd.Flags().BoolVar(&f.printScript, "script", false, "print the synthesized script")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read one request per line from a file, - for stdin")
	return cmd
}

func (a *app) generate(cmd *cobra.Command, args []string, f generateFlags) error {
	var hint domain.ExperimentType
	if f.typeHint != "" {
		t, err := domain.ParseExperimentType(f.typeHint)
		if err != nil {
			return usageError(err)
		}
		hint = t
	}
	reqs, err := a.requests(args, f.file, hint)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	simulate := f.simulate || a.cfg.Pipeline.Simulate
	p, closeFn, err := a.pipeline(ctx, simulate)
	if err != nil {
		return err
	}
	defer closeFn()

	opts := core.RunOptions{Simulate: simulate}
	var results []core.BatchResult
	if len(reqs) == 1 {
		out, err := p.Run(ctx, reqs[0], opts)
		results = []core.BatchResult{{Outcome: out, Err: err}}
	} else {
		results = p.RunBatch(ctx, reqs, opts, a.cfg.Pipeline.Concurrency)
	}

	w := cmd.OutOrStdout()
	if f.asJSON {
		if err := writeJSON(w, outcomes(results)); err != nil {
			return err
		}
	} else {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printOutcome(w, r.Outcome, f.printScript)
		}
	}

	var halted []error
	for _, r := range results {
		if r.Err != nil {
			halted = append(halted, fmt.Errorf("%s: %w", r.Outcome.RequestID, r.Err))
		}
	}
	if len(halted) > 0 {
		return failureError(errors.Join(halted...))
	}
	return nil
}

func (a *app) requests(args []string, file string, hint domain.ExperimentType) ([]domain.ExperimentRequest, error) {
	if file == "" {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return nil, usageError(errors.New("generate needs request text or --file"))
		}
		return []domain.ExperimentRequest{{Text: text, TypeHint: hint}}, nil
	}
	if len(args) > 0 {
		return nil, usageError(errors.New("generate takes either request text or --file, not both"))
	}
	var r io.Reader = a.stdin
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return nil, usageError(fmt.Errorf("open requests: %w", err))
		}
		defer fh.Close()
		r = fh
	}
	var reqs []domain.ExperimentRequest
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			reqs = append(reqs, domain.ExperimentRequest{Text: line, TypeHint: hint})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	if len(reqs) == 0 {
		return nil, usageError(fmt.Errorf("%s holds no requests", file))
	}
	return reqs, nil
}

// outcomeView is the JSON shape of one outcome, with the halting error as text.
type outcomeView struct {
	core.Outcome
	Error string `json:"error,omitempty"`
}

func outcomes(results []core.BatchResult) []outcomeView {
	out := make([]outcomeView, 0, len(results))
	for _, r := range results {
		v := outcomeView{Outcome: r.Outcome}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

func printOutcome(w io.Writer, o core.Outcome, script bool) {
	fmt.Fprintf(w, "request:  %s\n", o.RequestID)
	fmt.Fprintf(w, "status:   %s\n", o.Status)
	if t := o.Type(); t != "" {
		fmt.Fprintf(w, "type:     %s\n", t)
	}
	if o.Extraction != nil && o.Extraction.Question != "" {
		fmt.Fprintf(w, "question: %s\n", o.Extraction.Question)
	} else if reply := o.Reply(); reply != "" {
		fmt.Fprintf(w, "confirm:  %s\n", reply)
	}
	for _, f := range o.Report.Findings {
		fmt.Fprintf(w, "finding:  [%s] %s\n", f.Severity, f)
	}
	if o.Artifact != nil {
		fmt.Fprintf(w, "artifact: %s\n", o.Artifact.Key)
	}
	for _, c := range o.Classifications {
		printClassification(w, c)
	}
	if script && o.Script != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, o.Script.Text)
	}
}

func printClassification(w io.Writer, c domain.ErrorClassification) {
	fmt.Fprintf(w, "category: %s: %s\n", c.Category, c.Explanation)
	if c.Evidence != "" {
		fmt.Fprintf(w, "  evidence: %s\n", c.Evidence)
	}
	for _, s := range c.Suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
