package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storyforge/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates script problems (2) and interrupts (130) from other
// failures (1) so wrappers can tell a bad script from a broken toolchain.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case services.ErrorKind(err) == services.KindCancelled:
		return 130
	case services.IsInputError(err):
		return 2
	default:
		return 1
	}
}
