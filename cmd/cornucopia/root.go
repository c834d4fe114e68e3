package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cornucopia/internal/blob"
	"cornucopia/internal/config"
	"cornucopia/internal/core"
	"cornucopia/internal/extract"
	"cornucopia/internal/interpret"
	"cornucopia/internal/persistence"
	"cornucopia/pkg/domain"
)

type app struct {
	configPath  string
	verbose     bool
	metricsFile string

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *core.Metrics
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cornucopia",
		Short: "Synthesize and check liquid-handling protocols",
		Long: `cornucopia turns a free-text lab automation request into a validated
Opentrons Flex protocol: it extracts parameters, synthesizes the script,
checks it against the platform and the stated intent, and can run the
simulator and classify its diagnostics.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.setup() },
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML configuration")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	root.AddCommand(
		newGenerateCmd(a),
		newValidateCmd(a),
		newClassifyCmd(a),
		newSimulateCmd(a),
		newRunsCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return usageError(err)
	}
	a.cfg = cfg

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return usageError(fmt.Errorf("logging level: %w", err))
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	pc := zap.NewProductionConfig()
	a.logger = zap.New(
		zapcore.NewCore(zapcore.NewJSONEncoder(pc.EncoderConfig), zapcore.Lock(zapcore.AddSync(a.stderr)), level),
		zap.AddCaller(),
	)

	a.registry = prometheus.NewRegistry()
	a.metrics = core.NewMetrics(a.registry)
	return nil
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func (a *app) openLedger(ctx context.Context) (domain.RunLedger, error) {
	l, err := persistence.Open(ctx, a.cfg.LedgerConfig())
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	return l, nil
}

// pipeline assembles a pipeline from the configuration. The returned close
// function releases the ledger.
func (a *app) pipeline(ctx context.Context, simulate bool) (*core.Pipeline, func(), error) {
	store, err := blob.Open(ctx, a.cfg.BlobConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact store: %w", err)
	}
	ledger, err := a.openLedger(ctx)
	if err != nil {
		return nil, nil, err
	}

	extractOpts := []extract.Option{extract.WithLogger(a.logger)}
	if a.cfg.Interpreter.Provider == "genai" {
		backend, err := interpret.NewGenAI(ctx, a.cfg.APIKey(), a.cfg.Interpreter.Model)
		if err != nil {
			_ = ledger.Close()
			return nil, nil, fmt.Errorf("interpreter: %w", err)
		}
		extractOpts = append(extractOpts, extract.WithBackend(backend))
	}

	opts := []core.Option{
		core.WithExtractor(extract.New(extractOpts...)),
		core.WithArchive(blob.NewArchive(store)),
		core.WithLedger(ledger),
		core.WithLogger(a.logger),
		core.WithMetrics(a.metrics),
	}
	if simulate {
		runner := a.cfg.Runner()
		runner.Logger = a.logger
		opts = append(opts, core.WithSimulator(runner))
	}
	if a.verbose {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	}
	return core.NewPipeline(opts...), func() { _ = ledger.Close() }, nil
}
