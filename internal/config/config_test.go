package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cornucopia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Minute, cfg.SimulatorTimeout())
	assert.Equal(t, "opentrons_simulate", cfg.Runner().Command)
	assert.Equal(t, "fs", cfg.BlobConfig().Driver)
	assert.Equal(t, "sqlite", cfg.LedgerConfig().Driver)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
simulator:
  command: /opt/ot/bin/opentrons_simulate
  args: ["-e"]
  timeout: 30s
artifacts:
  driver: memory
runs:
  driver: postgres
  dsn: postgres://db/cornucopia
pipeline:
  simulate: true
  concurrency: 8
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SimulatorTimeout())
	assert.Equal(t, []string{"-e"}, cfg.Runner().Args)
	assert.Equal(t, "/opt/ot/bin/opentrons_simulate", cfg.Runner().Command)
	assert.Equal(t, "memory", cfg.BlobConfig().Driver)
	assert.Equal(t, "postgres://db/cornucopia", cfg.LedgerConfig().DSN)
	assert.True(t, cfg.Pipeline.Simulate)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1<<20, cfg.Simulator.MaxOutputBytes)
	assert.Equal(t, "none", cfg.Interpreter.Provider)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "artifacts:\n  driver: fs\n  root: /srv/protocols\n")
	t.Setenv("CORNUCOPIA_ARTIFACT_DRIVER", "s3")
	t.Setenv("CORNUCOPIA_ARTIFACT_S3_BUCKET", "protocols")
	t.Setenv("CORNUCOPIA_ARTIFACT_S3_PATH_STYLE", "true")
	t.Setenv("CORNUCOPIA_RUNS_DRIVER", "memory")
	t.Setenv("CORNUCOPIA_PIPELINE_CONCURRENCY", "2")
	t.Setenv("CORNUCOPIA_SIMULATOR_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	b := cfg.BlobConfig()
	assert.Equal(t, "s3", b.Driver)
	assert.Equal(t, "protocols", b.S3.Bucket)
	assert.True(t, b.S3.PathStyle)
	assert.Equal(t, "/srv/protocols", b.Root)
	assert.Equal(t, "memory", cfg.LedgerConfig().Driver)
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.SimulatorTimeout())
}

func TestEnvParseErrors(t *testing.T) {
	for _, name := range []string{"CORNUCOPIA_PIPELINE_CONCURRENCY", "CORNUCOPIA_PIPELINE_SIMULATE", "CORNUCOPIA_ARTIFACT_S3_PATH_STYLE"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "lots")
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad artifact driver":  "artifacts:\n  driver: ftp\n",
		"s3 without bucket":    "artifacts:\n  driver: s3\n",
		"bad endpoint":         "artifacts:\n  s3:\n    endpoint: not a url\n",
		"postgres without dsn": "runs:\n  driver: postgres\n",
		"bad duration":         "simulator:\n  timeout: soon\n",
		"negative duration":    "simulator:\n  timeout: -1s\n",
		"empty command":        "simulator:\n  command: \"\"\n",
		"tiny output":          "simulator:\n  max_output_bytes: 10\n",
		"zero concurrency":     "pipeline:\n  concurrency: 0\n",
		"unknown provider":     "interpreter:\n  provider: oracle\n",
		"genai without key":    "interpreter:\n  provider: genai\n  api_key_env: \"\"\n",
		"bad level":            "logging:\n  level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "simulator: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Simulate = true
	cfg.Artifacts.Driver = "memory"
	path := filepath.Join(t.TempDir(), "nested", "cornucopia.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestAPIKeyFromConfiguredVariable(t *testing.T) {
	cfg := Default()
	cfg.Interpreter.APIKeyEnv = "CORNUCOPIA_TEST_KEY"
	t.Setenv("CORNUCOPIA_TEST_KEY", "secret")
	assert.Equal(t, "secret", cfg.APIKey())
	cfg.Interpreter.APIKeyEnv = ""
	assert.Empty(t, cfg.APIKey())
}
