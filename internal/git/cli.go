package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/runner"
)

// CLIFetcher runs git operations through the git executable. Commands
// go through the runner so the configured command prefix applies.
type CLIFetcher struct {
	Runner *runner.Runner
	Logger *slog.Logger
}

func (f *CLIFetcher) CloneOrUpdate(ctx context.Context, src config.Source, dest string) (string, error) {
	if _, err := os.Stat(dest); err == nil {
		return f.update(ctx, src, dest)
	}
	return f.clone(ctx, src, dest)
}

func (f *CLIFetcher) clone(ctx context.Context, src config.Source, dest string) (string, error) {
	url := src.FullURL()
	if f.Logger != nil {
		f.Logger.Info("cloning", "url", url, "dest", dest, "strategy", "cli")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}

	if err := f.Runner.Run(ctx, "", "git", "clone", url, dest); err != nil {
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("cloning %s: %w", url, err)
	}

	if ref := src.Ref(); ref != "" {
		if err := f.checkoutRef(ctx, dest, ref); err != nil {
			return "", err
		}
	}

	return f.headCommit(ctx, dest)
}

func (f *CLIFetcher) update(ctx context.Context, src config.Source, dest string) (string, error) {
	if f.Logger != nil {
		f.Logger.Info("updating", "url", src.FullURL(), "dest", dest, "strategy", "cli")
	}

	if err := f.Runner.Run(ctx, "", "git", "-C", dest, "fetch", "--tags", "origin"); err != nil {
		return "", fmt.Errorf("fetching origin: %w", err)
	}

	if ref := src.Ref(); ref != "" {
		if err := f.checkoutRef(ctx, dest, ref); err != nil {
			return "", err
		}
	} else if err := f.resetToDefaultBranch(ctx, dest); err != nil {
		return "", err
	}

	return f.headCommit(ctx, dest)
}

// checkoutRef applies the same ordered trial as the native strategy:
// local branch, remote branch, tag, commit.
func (f *CLIFetcher) checkoutRef(ctx context.Context, dest, ref string) error {
	switch {
	case f.refExists(ctx, dest, "refs/heads/"+ref):
		return f.Runner.Run(ctx, "", "git", "-C", dest, "checkout", ref)

	case f.refExists(ctx, dest, "refs/remotes/origin/"+ref):
		return f.Runner.Run(ctx, "", "git", "-C", dest, "checkout", "-b", ref, "--track", "origin/"+ref)

	case f.refExists(ctx, dest, "refs/tags/"+ref):
		return f.Runner.Run(ctx, "", "git", "-C", dest, "checkout", "--detach", "refs/tags/"+ref)

	case isFullHash(ref) && f.refExists(ctx, dest, ref+"^{commit}"):
		return f.Runner.Run(ctx, "", "git", "-C", dest, "checkout", "--detach", ref)
	}

	return &RefNotFoundError{Ref: ref}
}

// resetToDefaultBranch hard-resets to origin/main, then origin/master.
func (f *CLIFetcher) resetToDefaultBranch(ctx context.Context, dest string) error {
	for _, branch := range []string{"origin/main", "origin/master"} {
		if err := f.Runner.Run(ctx, "", "git", "-C", dest, "reset", "--hard", branch); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no origin/main or origin/master branch to fast-forward to")
}

func (f *CLIFetcher) refExists(ctx context.Context, dest, rev string) bool {
	_, err := f.Runner.Output(ctx, "", "git", "-C", dest, "rev-parse", "--verify", "--quiet", rev)
	return err == nil
}

func (f *CLIFetcher) headCommit(ctx context.Context, dest string) (string, error) {
	commit, err := f.Runner.Output(ctx, "", "git", "-C", dest, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return commit, nil
}

func isFullHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
