// Package git fetches extension working copies from their sources.
//
// Two interchangeable strategies implement Fetcher: Native runs the
// operation in-process via go-git, CLI shells out to the git
// executable. Backend composes them with ordered fallback — any Native
// failure is logged and the whole operation is retried via CLI, which
// is the strategy of last resort.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/runner"
)

// Fetcher clones (if absent) or updates (if present) a working copy at
// dest for the given source, and returns the full commit hash of the
// HEAD actually checked out.
type Fetcher interface {
	CloneOrUpdate(ctx context.Context, src config.Source, dest string) (string, error)
}

// RefNotFoundError reports that a requested reference matched no local
// branch, remote branch, tag, or commit.
type RefNotFoundError struct {
	Ref string
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("reference '%s' not found: not a branch, tag, or commit", e.Ref)
}

// IsRefNotFound reports whether err is a reference resolution failure.
func IsRefNotFound(err error) bool {
	var refErr *RefNotFoundError
	return errors.As(err, &refErr)
}

// Backend is the ordered-fallback composite over the two strategies.
type Backend struct {
	Native Fetcher
	CLI    Fetcher
	Logger *slog.Logger
}

// New builds the default backend: go-git first, subprocess git second.
func New(r *runner.Runner, logger *slog.Logger) *Backend {
	return &Backend{
		Native: &NativeFetcher{Logger: logger},
		CLI:    &CLIFetcher{Runner: r, Logger: logger},
		Logger: logger,
	}
}

// CloneOrUpdate tries the native strategy and, on any failure, retries
// the entire operation via the git executable. The subprocess result is
// final: its failure is the operation's failure.
func (b *Backend) CloneOrUpdate(ctx context.Context, src config.Source, dest string) (string, error) {
	commit, err := b.Native.CloneOrUpdate(ctx, src, dest)
	if err == nil {
		return commit, nil
	}

	if b.Logger != nil {
		b.Logger.Warn("native git operation failed, falling back to command-line git",
			"url", src.FullURL(), "dest", dest, "error", err)
	}

	commit, cliErr := b.CLI.CloneOrUpdate(ctx, src, dest)
	if cliErr != nil {
		if IsRefNotFound(cliErr) {
			return "", cliErr
		}
		return "", fmt.Errorf("fetching %s: both git strategies failed: native: %v; command-line: %w", src.FullURL(), err, cliErr)
	}
	return commit, nil
}
