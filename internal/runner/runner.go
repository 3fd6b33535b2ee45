// Package runner executes external commands, applying the configured
// command prefix to every invocation. All external process spawns —
// the subprocess git strategy and the plugin setup hook — go through
// here so that sandboxed setups (e.g. "docker compose exec app") wrap
// every command uniformly.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner spawns external processes.
type Runner struct {
	// Prefix is split on whitespace and prepended verbatim to argv.
	Prefix string

	Logger *slog.Logger
}

// Run executes a command in dir (or the current directory when dir is
// empty), discarding output on success. Combined output is included in
// the error on a non-zero exit.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := r.command(ctx, dir, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %s: %w", name, strings.Join(args, " "), strings.TrimSpace(string(output)), err)
	}
	return nil
}

// Output executes a command and returns its trimmed stdout.
func (r *Runner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := r.command(ctx, dir, name, args...)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = ": " + strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", fmt.Errorf("%s %s%s: %w", name, strings.Join(args, " "), detail, err)
	}
	return strings.TrimSpace(string(output)), nil
}

func (r *Runner) command(ctx context.Context, dir, name string, args ...string) *exec.Cmd {
	argv := append([]string{name}, args...)
	if prefix := strings.Fields(r.Prefix); len(prefix) > 0 {
		argv = append(prefix, argv...)
	}

	if r.Logger != nil {
		r.Logger.Debug("running command", "argv", argv, "dir", dir)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd
}
