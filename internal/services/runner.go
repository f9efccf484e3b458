package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary and returns its stdout. Tests
// substitute it to avoid spawning real tools.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// RunCommand is the default CommandRunner. A context deadline is reported as
// ErrTimeout; any other failure is tagged ErrExternalTool with the tail of
// stderr.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, Wrap(ErrTimeout, "", name, "deadline exceeded", ctxErr)
		}
		return out, ctxErr
	}
	return out, Wrap(ErrExternalTool, "", name, tail(stderr.String(), 400), err)
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return fmt.Sprintf("...%s", s[len(s)-limit:])
}
