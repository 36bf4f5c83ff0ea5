// Package command runs client-supplied command lines through a shell.
//
// There is no allow-list: whatever string a connected client sends is
// executed verbatim with the server's privileges. Only bind the server to
// interfaces you trust.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrCommandFailed matches every CommandError.
var ErrCommandFailed = errors.New("command failed")

// CommandError is returned when the shell could not be started or exited
// non-zero. Output holds stderr, or the OS error text for spawn failures.
type CommandError struct {
	Output   string
	ExitCode int
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command failed: %s", e.Output)
	}
	return fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, e.Output)
}

func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// Bridge executes command lines as `<Shell> -c <line>`.
type Bridge struct {
	Shell string
	// Dir is the working directory; empty means the server's own.
	Dir string
	// Timeout bounds each run; zero means no limit beyond the caller's context.
	Timeout time.Duration
}

func NewBridge(shell, dir string, timeout time.Duration) *Bridge {
	if shell == "" {
		shell = "sh"
	}
	return &Bridge{Shell: shell, Dir: dir, Timeout: timeout}
}

// Run executes line and returns its stdout. Invalid UTF-8 in the output is
// replaced rather than treated as an error.
func (b *Bridge) Run(ctx context.Context, line string) (string, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, b.Shell, "-c", line)
	cmd.Dir = b.Dir
	// Children of the shell can hold the output pipes open after it is killed.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output := toText(stderr.Bytes())
			if output == "" && ctx.Err() != nil {
				output = ctx.Err().Error()
			}
			return "", &CommandError{Output: output, ExitCode: exitErr.ExitCode()}
		}
		return "", &CommandError{Output: err.Error(), ExitCode: -1}
	}

	return toText(stdout.Bytes()), nil
}

func toText(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
