package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool. Tests replace it with a stub.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// maxStderrTail bounds how much tool output ends up in error messages.
const maxStderrTail = 2048

// ExecRunner runs the command with exec.CommandContext so cancelling ctx
// kills the child process. env entries are appended to the parent environment.
func ExecRunner(env ...string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
		if len(env) > 0 {
			cmd.Env = append(os.Environ(), env...)
		}
		output, err := cmd.CombinedOutput()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", name, ctxErr)
		}
		return fmt.Errorf("%s: %w: %s", name, err, tail(strings.TrimSpace(string(output)), maxStderrTail))
	}
}

func tail(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return "..." + value[len(value)-limit:]
}
