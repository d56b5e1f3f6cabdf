package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunWithTimeout(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		timeout time.Duration
		wantErr error
	}{
		{"success", "exit 0", time.Second, nil},
		{"non-zero exit", "echo broken input >&2; exit 3", time.Second, ErrToolFailed},
		{"timeout kills", "exec sleep 5", 100 * time.Millisecond, ErrToolTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := fakeTool(t, "tool", tt.body)

			start := time.Now()
			err := runWithTimeout(context.Background(), tt.timeout, tool)
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Errorf("runWithTimeout took %v", elapsed)
			}

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("runWithTimeout() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("runWithTimeout() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunWithTimeout_StderrInError(t *testing.T) {
	tool := fakeTool(t, "tool", "echo no such frame >&2; exit 1")
	err := runWithTimeout(context.Background(), time.Second, tool)
	if err == nil || !strings.Contains(err.Error(), "no such frame") {
		t.Errorf("runWithTimeout() = %v, want stderr in error", err)
	}
}

func TestRunWithTimeout_MissingBinary(t *testing.T) {
	err := runWithTimeout(context.Background(), time.Second, "/nonexistent/thumbnailer")
	if !errors.Is(err, ErrToolFailed) {
		t.Errorf("runWithTimeout() = %v, want ErrToolFailed", err)
	}
}

func TestRunWithTimeout_ContextCancel(t *testing.T) {
	tool := fakeTool(t, "tool", "exec sleep 5")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := runWithTimeout(ctx, 10*time.Second, tool)
	if !errors.Is(err, ErrToolFailed) {
		t.Errorf("runWithTimeout() = %v, want ErrToolFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("cancelled run took %v", elapsed)
	}
}

func TestRunWithTimeout_PassesArguments(t *testing.T) {
	out := t.TempDir() + "/args"
	tool := fakeTool(t, "tool", `printf '%s|' "$@" > "`+out+`"`)

	if err := runWithTimeout(context.Background(), time.Second, tool, "-s", "250", "in.heic", "out.heic"); err != nil {
		t.Fatalf("runWithTimeout() = %v", err)
	}
	got := readFile(t, out)
	if got != "-s|250|in.heic|out.heic|" {
		t.Errorf("arguments = %q", got)
	}
}
