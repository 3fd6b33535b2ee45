// Package installer reconciles the declared extension set against the
// installed-state lock file. One run is sequential: each extension's
// fetch or removal fully completes before the next begins, and any
// failure aborts the run before a new lock file is produced — the
// prior record stays the source of truth, so a retry is safe.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/git"
	"github.com/hidakatsuya/rexer/internal/lock"
)

// Installer drives the fetch backend and removal logic to converge the
// filesystem to the desired state.
type Installer struct {
	Config  *config.Config
	Fetcher git.Fetcher
	Hook    SetupHook
	Logger  *slog.Logger
}

// Reconcile converges the filesystem to the desired state and returns
// the new lock file to persist. The caller persists it only when the
// returned error is nil; no partial record is ever produced.
func (in *Installer) Reconcile(ctx context.Context, desired *config.ExtensionsConfig, observed *lock.LockFile) (*Result, *lock.LockFile, error) {
	if observed == nil {
		return in.installAll(ctx, desired)
	}

	d := Calculate(desired, observed)
	result := &Result{}
	var entries []lock.LockedExtension

	for _, locked := range d.Unchanged {
		dir := in.Config.ExtensionDir(locked.Kind, locked.Name)
		if _, err := os.Stat(dir); err != nil {
			// The record lists the extension but its directory is
			// gone: inconsistent state, needs reinstall.
			if in.Logger != nil {
				in.Logger.Warn("installed extension missing on disk, reinstalling", "name", locked.Name, "dir", dir)
			}
			entry, err := in.install(ctx, declaredFrom(locked))
			if err != nil {
				return nil, nil, err
			}
			entries = append(entries, entry)
			result.Updated = append(result.Updated, action(entry))
			continue
		}
		entries = append(entries, locked)
		result.Unchanged = append(result.Unchanged, action(locked))
	}

	for _, ch := range d.SourceChanged {
		// Remove the old working copy first so the fetch backend
		// takes its clone branch, not a confused update of a stale
		// checkout.
		if err := in.uninstall(ch.Locked); err != nil {
			return nil, nil, err
		}
		entry, err := in.install(ctx, ch.Declared)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
		result.Updated = append(result.Updated, action(entry))
	}

	for _, dec := range d.Added {
		entry, err := in.install(ctx, dec)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
		result.Installed = append(result.Installed, action(entry))
	}

	for _, locked := range d.Removed {
		if err := in.uninstall(locked); err != nil {
			return nil, nil, err
		}
		result.Removed = append(result.Removed, action(locked))
	}

	return result, &lock.LockFile{Extensions: entries}, nil
}

// installAll performs a fresh install of every declared extension.
func (in *Installer) installAll(ctx context.Context, desired *config.ExtensionsConfig) (*Result, *lock.LockFile, error) {
	result := &Result{}
	var entries []lock.LockedExtension

	for _, dec := range desired.All() {
		entry, err := in.install(ctx, dec)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
		result.Installed = append(result.Installed, action(entry))
	}

	return result, &lock.LockFile{Extensions: entries}, nil
}

// UninstallAll removes every installed extension. The caller deletes
// the lock file afterwards.
func (in *Installer) UninstallAll(observed *lock.LockFile) (*Result, error) {
	result := &Result{}
	for _, locked := range observed.Extensions {
		if err := in.uninstall(locked); err != nil {
			return nil, err
		}
		result.Removed = append(result.Removed, action(locked))
	}
	return result, nil
}

// Reinstall removes and reinstalls a single locked extension at its
// recorded source, returning the updated lock file.
func (in *Installer) Reinstall(ctx context.Context, name string, observed *lock.LockFile) (*lock.LockFile, error) {
	locked, ok := observed.Find(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	if err := in.uninstall(locked); err != nil {
		return nil, err
	}
	entry, err := in.install(ctx, declaredFrom(locked))
	if err != nil {
		return nil, err
	}

	updated := &lock.LockFile{Extensions: make([]lock.LockedExtension, len(observed.Extensions))}
	copy(updated.Extensions, observed.Extensions)
	for i := range updated.Extensions {
		if updated.Extensions[i].Name == name {
			updated.Extensions[i] = entry
		}
	}
	return updated, nil
}

// Update fast-forwards the named locked extensions (all of them when
// names is empty) at their recorded sources. Lock entries are
// refreshed only when the checked-out commit actually changed.
func (in *Installer) Update(ctx context.Context, names []string, observed *lock.LockFile) (*Result, *lock.LockFile, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	for n := range wanted {
		if _, ok := observed.Find(n); !ok {
			return nil, nil, &NotFoundError{Name: n}
		}
	}

	result := &Result{}
	updated := &lock.LockFile{Extensions: make([]lock.LockedExtension, len(observed.Extensions))}
	copy(updated.Extensions, observed.Extensions)

	for i, locked := range updated.Extensions {
		if len(wanted) > 0 && !wanted[locked.Name] {
			continue
		}

		dir := in.Config.ExtensionDir(locked.Kind, locked.Name)
		if _, err := os.Stat(dir); err != nil {
			return nil, nil, fmt.Errorf("updating %s: directory %s not found — run install to repair", locked.Name, dir)
		}

		entry, err := in.install(ctx, declaredFrom(locked))
		if err != nil {
			return nil, nil, err
		}

		if entry.Commit == locked.Commit {
			result.Unchanged = append(result.Unchanged, action(locked))
			continue
		}
		updated.Extensions[i] = entry
		result.Updated = append(result.Updated, action(entry))
	}

	return result, updated, nil
}

// install fetches one extension into place and, for plugins, runs the
// setup hook. The returned entry carries the resolved HEAD commit.
func (in *Installer) install(ctx context.Context, dec config.Declared) (lock.LockedExtension, error) {
	name := dec.Extension.Name
	dest := in.Config.ExtensionDir(dec.Kind, name)

	commit, err := in.Fetcher.CloneOrUpdate(ctx, dec.Extension.Source, dest)
	if err != nil {
		return lock.LockedExtension{}, fmt.Errorf("installing %s: %w", name, err)
	}

	if dec.Kind == config.Plugin && in.Hook != nil {
		if err := in.Hook.Setup(ctx, dest, name); err != nil {
			return lock.LockedExtension{}, fmt.Errorf("plugin setup for %s: %w", name, err)
		}
	}

	return lock.LockedExtension{
		Name:        name,
		Kind:        dec.Kind,
		Source:      dec.Extension.Source,
		Commit:      commit,
		InstalledAt: time.Now().UTC(),
	}, nil
}

func (in *Installer) uninstall(locked lock.LockedExtension) error {
	dir := in.Config.ExtensionDir(locked.Kind, locked.Name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("uninstalling %s: %w", locked.Name, err)
	}
	return nil
}

func declaredFrom(locked lock.LockedExtension) config.Declared {
	return config.Declared{
		Extension: config.Extension{Name: locked.Name, Source: locked.Source},
		Kind:      locked.Kind,
	}
}

func action(entry lock.LockedExtension) Action {
	return Action{Name: entry.Name, Kind: entry.Kind, Commit: entry.Commit}
}
