package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/hidakatsuya/rexer/internal/config"
)

// NativeFetcher runs git operations in-process via go-git.
type NativeFetcher struct {
	Logger *slog.Logger
}

func (f *NativeFetcher) CloneOrUpdate(ctx context.Context, src config.Source, dest string) (string, error) {
	if _, err := os.Stat(dest); err == nil {
		return f.update(ctx, src, dest)
	}
	return f.clone(ctx, src, dest)
}

func (f *NativeFetcher) clone(ctx context.Context, src config.Source, dest string) (string, error) {
	url := src.FullURL()
	if f.Logger != nil {
		f.Logger.Info("cloning", "url", url, "dest", dest, "strategy", "native")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, dest, false, &gogit.CloneOptions{URL: url})
	if err != nil {
		// Leave nothing behind that would push a retry onto the
		// update path of a broken working copy.
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("cloning %s: %w", url, err)
	}

	if ref := src.Ref(); ref != "" {
		if err := checkoutRef(repo, ref); err != nil {
			return "", err
		}
	}

	return headCommit(repo)
}

func (f *NativeFetcher) update(ctx context.Context, src config.Source, dest string) (string, error) {
	if f.Logger != nil {
		f.Logger.Info("updating", "url", src.FullURL(), "dest", dest, "strategy", "native")
	}

	repo, err := gogit.PlainOpen(dest)
	if err != nil {
		return "", fmt.Errorf("opening repository at %s: %w", dest, err)
	}

	err = repo.FetchContext(ctx, &gogit.FetchOptions{RemoteName: "origin", Tags: gogit.AllTags})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("fetching origin: %w", err)
	}

	if ref := src.Ref(); ref != "" {
		if err := checkoutRef(repo, ref); err != nil {
			return "", err
		}
	} else if err := fastForwardDefault(ctx, repo); err != nil {
		return "", err
	}

	return headCommit(repo)
}

// checkoutRef resolves a reference by ordered trial: local branch,
// remote branch, tag, commit. The kind is never guessed from the
// string's shape, and there is no fallback to the default branch.
func checkoutRef(repo *gogit.Repository, ref string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(ref)

	// 1. Existing local branch.
	if _, err := repo.Reference(branchRef, true); err == nil {
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
			return fmt.Errorf("checking out branch %s: %w", ref, err)
		}
		return nil
	}

	// 2. Remote branch origin/<ref>: materialize a local branch
	// tracking it, then check that out.
	if remote, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", ref), true); err == nil {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(branchRef, remote.Hash())); err != nil {
			return fmt.Errorf("creating local branch %s: %w", ref, err)
		}
		if err := repo.CreateBranch(&gitconfig.Branch{Name: ref, Remote: "origin", Merge: branchRef}); err != nil && !errors.Is(err, gogit.ErrBranchExists) {
			return fmt.Errorf("configuring branch %s: %w", ref, err)
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
			return fmt.Errorf("checking out branch %s: %w", ref, err)
		}
		return nil
	}

	// 3. Annotated or lightweight tag.
	if tagRef, err := repo.Reference(plumbing.NewTagReferenceName(ref), true); err == nil {
		hash := tagRef.Hash()
		if tag, err := repo.TagObject(hash); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return fmt.Errorf("peeling tag %s: %w", ref, err)
			}
			hash = commit.Hash
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
			return fmt.Errorf("checking out tag %s: %w", ref, err)
		}
		return nil
	}

	// 4. Commit hash, checked out detached.
	if plumbing.IsHash(ref) {
		hash := plumbing.NewHash(ref)
		if _, err := repo.CommitObject(hash); err == nil {
			if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
				return fmt.Errorf("checking out commit %s: %w", ref, err)
			}
			return nil
		}
	}

	return &RefNotFoundError{Ref: ref}
}

// fastForwardDefault moves the working copy to the latest commit of
// the default branch when no reference was requested.
func fastForwardDefault(ctx context.Context, repo *gogit.Repository) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	if head.Name().IsBranch() {
		err := wt.PullContext(ctx, &gogit.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return fmt.Errorf("fast-forwarding %s: %w", head.Name().Short(), err)
		}
		return nil
	}

	// Detached HEAD with no requested reference: move to the remote
	// default branch tip.
	for _, name := range []string{"main", "master"} {
		if remote, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true); err == nil {
			return wt.Checkout(&gogit.CheckoutOptions{Hash: remote.Hash(), Force: true})
		}
	}
	return fmt.Errorf("no origin/main or origin/master branch to fast-forward to")
}

func headCommit(repo *gogit.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash().String(), nil
}
