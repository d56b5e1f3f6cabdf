package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

var (
	// ErrToolTimeout means an external tool ran past its deadline and was killed.
	ErrToolTimeout = errors.New("external tool timed out")
	// ErrToolFailed means an external tool could not start or exited non-zero.
	ErrToolFailed = errors.New("external tool failed")
)

// runWithTimeout runs name with args and waits at most timeout. On expiry,
// or when ctx ends, the child is killed and reaped before returning.
func runWithTimeout(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	tool := filepath.Base(name)

	var stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	logging.Debug("Running %s %s", name, strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		metrics.DerivativeToolRuns.WithLabelValues(tool, "error").Inc()
		return fmt.Errorf("%w: start %s: %v", ErrToolFailed, tool, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			metrics.DerivativeToolRuns.WithLabelValues(tool, "error").Inc()
			return fmt.Errorf("%w: %s: %v: %s", ErrToolFailed, tool, err, strings.TrimSpace(stderr.String()))
		}
		metrics.DerivativeToolRuns.WithLabelValues(tool, "success").Inc()
		return nil

	case <-timer.C:
		kill(cmd, done)
		metrics.DerivativeToolRuns.WithLabelValues(tool, "timeout").Inc()
		return fmt.Errorf("%w: %s after %v", ErrToolTimeout, tool, timeout)

	case <-ctx.Done():
		kill(cmd, done)
		metrics.DerivativeToolRuns.WithLabelValues(tool, "error").Inc()
		return fmt.Errorf("%w: %s: %v", ErrToolFailed, tool, ctx.Err())
	}
}

func kill(cmd *exec.Cmd, done <-chan error) {
	if err := cmd.Process.Kill(); err != nil {
		logging.Warn("Failed to kill %s (pid %d): %v", cmd.Path, cmd.Process.Pid, err)
	}
	<-done
}
