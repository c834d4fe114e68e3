// Package simulate runs the platform simulator out of process and captures
// its diagnostic output.
package simulate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"cornucopia/pkg/domain"
)

// Defaults used when a Runner field is zero.
const (
	DefaultCommand        = "opentrons_simulate"
	DefaultTimeout        = 2 * time.Minute
	DefaultMaxOutputBytes = 1 << 20
)

// Runner invokes the simulator as `Command Args... path`.
type Runner struct {
	Command        string
	Args           []string
	Timeout        time.Duration
	MaxOutputBytes int
	Logger         *zap.Logger
}

func (r Runner) command() string {
	if r.Command == "" {
		return DefaultCommand
	}
	return r.Command
}

func (r Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func (r Runner) maxOutput() int {
	if r.MaxOutputBytes <= 0 {
		return DefaultMaxOutputBytes
	}
	return r.MaxOutputBytes
}

func (r Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Simulate runs the simulator against the script at path. Failures of any
// kind, including failure to start the process, are reported through the
// result diagnostic rather than as errors.
func (r Runner) Simulate(ctx context.Context, path string) domain.SimulationResult {
	timeout := r.timeout()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), r.Args...), path)
	cmd := exec.CommandContext(runCtx, r.command(), args...)
	cmd.WaitDelay = time.Second

	var buf bytes.Buffer
	out := &limitedWriter{w: &buf, max: r.maxOutput()}
	cmd.Stdout = out
	cmd.Stderr = out

	started := time.Now()
	err := cmd.Run()
	result := domain.SimulationResult{ExitCode: -1, Duration: time.Since(started)}
	log := r.logger().With(zap.String("script", filepath.Base(path)))

	if err == nil {
		result.Success = true
		result.ExitCode = 0
		log.Debug("simulation passed", zap.Duration("duration", result.Duration))
		return result
	}

	diagnostic := strings.TrimRight(buf.String(), "\n")
	if out.truncated {
		diagnostic += fmt.Sprintf("\n[output truncated: %d bytes discarded]", out.discarded)
	}
	if cause := runCtx.Err(); cause != nil {
		result.TimedOut = errors.Is(cause, context.DeadlineExceeded)
		note := "simulation cancelled: " + cause.Error()
		if result.TimedOut {
			note = fmt.Sprintf("simulation cancelled: timeout after %s", timeout)
		}
		diagnostic = join(diagnostic, note)
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			if diagnostic == "" {
				diagnostic = err.Error()
			}
		} else {
			diagnostic = join(diagnostic, err.Error())
		}
	}
	result.Diagnostic = diagnostic
	log.Info("simulation failed",
		zap.Int("exit_code", result.ExitCode),
		zap.Bool("timed_out", result.TimedOut),
		zap.Duration("duration", result.Duration))
	return result
}

// SimulateText writes text to a temporary file named name and simulates it.
func (r Runner) SimulateText(ctx context.Context, name, text string) (domain.SimulationResult, error) {
	dir, err := os.MkdirTemp("", "cornucopia-sim-")
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("create simulation dir: %w", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return domain.SimulationResult{}, fmt.Errorf("write simulation script: %w", err)
	}
	return r.Simulate(ctx, path), nil
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

// limitedWriter keeps the first max bytes and counts the rest.
type limitedWriter struct {
	w         *bytes.Buffer
	max       int
	truncated bool
	discarded int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	room := l.max - l.w.Len()
	if room >= len(p) {
		return l.w.Write(p)
	}
	if room > 0 {
		l.w.Write(p[:room])
	} else {
		room = 0
	}
	l.truncated = true
	l.discarded += len(p) - room
	return len(p), nil
}
