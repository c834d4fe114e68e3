// Package config loads cornucopia settings from YAML with CORNUCOPIA_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"cornucopia/internal/blob"
	"cornucopia/internal/persistence"
	"cornucopia/internal/simulate"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "cornucopia.yaml"

// Config holds all cornucopia configuration.
type Config struct {
	Simulator   SimulatorConfig   `yaml:"simulator"`
	Artifacts   ArtifactsConfig   `yaml:"artifacts"`
	Runs        RunsConfig        `yaml:"runs"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SimulatorConfig configures the out-of-process simulator.
type SimulatorConfig struct {
	Command        string   `yaml:"command" validate:"required"`
	Args           []string `yaml:"args,omitempty"`
	Timeout        string   `yaml:"timeout" validate:"required,duration"`
	MaxOutputBytes int      `yaml:"max_output_bytes" validate:"min=1024"`
}

// ArtifactsConfig selects the script archive.
type ArtifactsConfig struct {
	Driver string   `yaml:"driver" validate:"oneof=fs memory s3"`
	Root   string   `yaml:"root,omitempty"`
	S3     S3Config `yaml:"s3"`
}

// S3Config addresses an S3-compatible bucket. Credentials come from the
// default AWS chain.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// RunsConfig selects the run ledger.
type RunsConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	Path   string `yaml:"path,omitempty"`
	DSN    string `yaml:"dsn,omitempty" validate:"required_if=Driver postgres"`
}

// InterpreterConfig selects the optional interpretation backend.
type InterpreterConfig struct {
	Provider  string `yaml:"provider" validate:"oneof=none genai"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required_if=Provider genai"`
}

// PipelineConfig tunes runs.
type PipelineConfig struct {
	Simulate    bool `yaml:"simulate"`
	Concurrency int  `yaml:"concurrency" validate:"min=1,max=64"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Simulator: SimulatorConfig{
			Command:        simulate.DefaultCommand,
			Timeout:        simulate.DefaultTimeout.String(),
			MaxOutputBytes: simulate.DefaultMaxOutputBytes,
		},
		Artifacts: ArtifactsConfig{
			Driver: string(blob.DriverFilesystem),
			Root:   "./artifacts",
		},
		Runs: RunsConfig{
			Driver: string(persistence.StorageSQLite),
			Path:   "cornucopia.db",
		},
		Interpreter: InterpreterConfig{
			Provider:  "none",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Pipeline: PipelineConfig{Concurrency: 4},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error; an empty path reads
// nothing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		a := sl.Current().Interface().(ArtifactsConfig)
		if a.Driver == string(blob.DriverS3) && a.S3.Bucket == "" {
			sl.ReportError(a.S3.Bucket, "S3.Bucket", "Bucket", "required_for_s3", "")
		}
	}, ArtifactsConfig{})
	return v
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"CORNUCOPIA_SIMULATOR_COMMAND":    &c.Simulator.Command,
		"CORNUCOPIA_SIMULATOR_TIMEOUT":    &c.Simulator.Timeout,
		"CORNUCOPIA_ARTIFACT_DRIVER":      &c.Artifacts.Driver,
		"CORNUCOPIA_ARTIFACT_ROOT":        &c.Artifacts.Root,
		"CORNUCOPIA_ARTIFACT_S3_BUCKET":   &c.Artifacts.S3.Bucket,
		"CORNUCOPIA_ARTIFACT_S3_REGION":   &c.Artifacts.S3.Region,
		"CORNUCOPIA_ARTIFACT_S3_ENDPOINT": &c.Artifacts.S3.Endpoint,
		"CORNUCOPIA_RUNS_DRIVER":          &c.Runs.Driver,
		"CORNUCOPIA_RUNS_PATH":            &c.Runs.Path,
		"CORNUCOPIA_RUNS_DSN":             &c.Runs.DSN,
		"CORNUCOPIA_INTERPRETER_PROVIDER": &c.Interpreter.Provider,
		"CORNUCOPIA_INTERPRETER_MODEL":    &c.Interpreter.Model,
		"CORNUCOPIA_INTERPRETER_KEY_ENV":  &c.Interpreter.APIKeyEnv,
		"CORNUCOPIA_LOG_LEVEL":            &c.Logging.Level,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv("CORNUCOPIA_ARTIFACT_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CORNUCOPIA_ARTIFACT_S3_PATH_STYLE: %w", err)
		}
		c.Artifacts.S3.PathStyle = b
	}
	if v := os.Getenv("CORNUCOPIA_PIPELINE_SIMULATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CORNUCOPIA_PIPELINE_SIMULATE: %w", err)
		}
		c.Pipeline.Simulate = b
	}
	if v := os.Getenv("CORNUCOPIA_PIPELINE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CORNUCOPIA_PIPELINE_CONCURRENCY: %w", err)
		}
		c.Pipeline.Concurrency = n
	}
	return nil
}

// SimulatorTimeout returns the parsed simulator timeout.
func (c *Config) SimulatorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Simulator.Timeout)
	if err != nil {
		return simulate.DefaultTimeout
	}
	return d
}

// Runner builds the simulator runner.
func (c *Config) Runner() simulate.Runner {
	return simulate.Runner{
		Command:        c.Simulator.Command,
		Args:           append([]string(nil), c.Simulator.Args...),
		Timeout:        c.SimulatorTimeout(),
		MaxOutputBytes: c.Simulator.MaxOutputBytes,
	}
}

// BlobConfig returns the archive store configuration.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: c.Artifacts.Driver,
		Root:   c.Artifacts.Root,
		S3: blob.S3Config{
			Bucket:    c.Artifacts.S3.Bucket,
			Region:    c.Artifacts.S3.Region,
			Endpoint:  c.Artifacts.S3.Endpoint,
			PathStyle: c.Artifacts.S3.PathStyle,
		},
	}
}

// LedgerConfig returns the run ledger configuration.
func (c *Config) LedgerConfig() persistence.Config {
	return persistence.Config{Driver: c.Runs.Driver, Path: c.Runs.Path, DSN: c.Runs.DSN}
}

// APIKey returns the interpretation backend key from the configured variable.
func (c *Config) APIKey() string {
	if c.Interpreter.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Interpreter.APIKeyEnv)
}
