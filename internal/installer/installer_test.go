package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/lock"
)

// fakeFetcher simulates the fetch backend: it creates the destination
// directory and records each call with whether the destination already
// existed, so tests can assert uninstall-before-install ordering.
type fakeFetcher struct {
	commit     string
	err        error
	calls      []string
	sawExisted map[string]bool
}

func (f *fakeFetcher) CloneOrUpdate(ctx context.Context, src config.Source, dest string) (string, error) {
	if f.sawExisted == nil {
		f.sawExisted = make(map[string]bool)
	}
	_, statErr := os.Stat(dest)
	f.sawExisted[dest] = statErr == nil
	f.calls = append(f.calls, dest)

	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", err
	}
	commit := f.commit
	if commit == "" {
		commit = "2222222222222222222222222222222222222222"
	}
	return commit, nil
}

type fakeHook struct {
	err   error
	calls []string
}

func (h *fakeHook) Setup(ctx context.Context, pluginDir, name string) error {
	h.calls = append(h.calls, name)
	return h.err
}

func newTestInstaller(t *testing.T) (*Installer, *fakeFetcher, *fakeHook) {
	t.Helper()
	fetcher := &fakeFetcher{}
	hook := &fakeHook{}
	inst := &Installer{
		Config:  &config.Config{RedmineRoot: t.TempDir()},
		Fetcher: fetcher,
		Hook:    hook,
	}
	return inst, fetcher, hook
}

func TestReconcileFreshInstall(t *testing.T) {
	inst, fetcher, hook := newTestInstaller(t)
	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "a", Source: config.Source{Repo: "org/a", Tag: "v1.0"}}},
		Themes:  []config.Extension{{Name: "th", Source: config.Source{URL: "https://x/th.git"}}},
	}

	result, newLock, err := inst.Reconcile(context.Background(), desired, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(result.Installed) != 2 {
		t.Errorf("installed = %d, want 2", len(result.Installed))
	}
	if len(newLock.Extensions) != 2 {
		t.Fatalf("lock entries = %d, want 2", len(newLock.Extensions))
	}
	if newLock.Extensions[0].Commit != "2222222222222222222222222222222222222222" {
		t.Errorf("commit = %q", newLock.Extensions[0].Commit)
	}
	if newLock.Extensions[0].InstalledAt.IsZero() {
		t.Error("installed_at not set")
	}

	// The hook runs for the plugin only.
	if len(hook.calls) != 1 || hook.calls[0] != "a" {
		t.Errorf("hook calls = %v, want [a]", hook.calls)
	}

	wantDirs := []string{
		inst.Config.ExtensionDir(config.Plugin, "a"),
		inst.Config.ExtensionDir(config.Theme, "th"),
	}
	for i, dir := range wantDirs {
		if fetcher.calls[i] != dir {
			t.Errorf("fetch %d = %s, want %s", i, fetcher.calls[i], dir)
		}
	}
}

func TestReconcileAddAndRemove(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)

	removedDir := inst.Config.ExtensionDir(config.Plugin, "old")
	if err := os.MkdirAll(removedDir, 0755); err != nil {
		t.Fatal(err)
	}

	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "new", Source: config.Source{Repo: "org/new"}}},
	}
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "old", Kind: config.Plugin, Source: config.Source{Repo: "org/old"}, Commit: "c0"},
	}}

	result, newLock, err := inst.Reconcile(context.Background(), desired, observed)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(result.Installed) != 1 || result.Installed[0].Name != "new" {
		t.Errorf("installed = %+v", result.Installed)
	}
	if len(result.Removed) != 1 || result.Removed[0].Name != "old" {
		t.Errorf("removed = %+v", result.Removed)
	}
	if _, err := os.Stat(removedDir); !os.IsNotExist(err) {
		t.Error("removed extension's directory still exists")
	}
	if _, ok := newLock.Find("old"); ok {
		t.Error("removed extension still in lock")
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %v, want one", fetcher.calls)
	}
}

func TestReconcileSourceChangedUninstallsFirst(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)

	dir := inst.Config.ExtensionDir(config.Plugin, "a")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "a", Source: config.Source{Repo: "org/a", Tag: "v2.0"}}},
	}
	prev := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "a", Kind: config.Plugin, Source: config.Source{Repo: "org/a", Tag: "v1.0"}, Commit: "c1", InstalledAt: prev},
	}}

	result, newLock, err := inst.Reconcile(context.Background(), desired, observed)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(result.Updated) != 1 {
		t.Fatalf("updated = %+v, want [a]", result.Updated)
	}
	// The old directory must be gone before the fetch: the backend
	// must take its clone branch, not update a stale checkout.
	if fetcher.sawExisted[dir] {
		t.Error("fetch saw the old working copy — uninstall must precede install")
	}

	entry, _ := newLock.Find("a")
	if entry.Source.Tag != "v2.0" {
		t.Errorf("lock source tag = %q, want v2.0", entry.Source.Tag)
	}
	if entry.Commit == "c1" {
		t.Error("commit not refreshed")
	}
	if entry.InstalledAt.Equal(prev) {
		t.Error("installed_at carried forward on reinstall")
	}
}

func TestReconcileUnchangedCarriedVerbatim(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)

	dir := inst.Config.ExtensionDir(config.Plugin, "a")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	prev := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "a", Source: config.Source{Repo: "org/a", Tag: "v1.0"}}},
	}
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "a", Kind: config.Plugin, Source: config.Source{Repo: "org/a", Tag: "v1.0"}, Commit: "c1", InstalledAt: prev},
	}}

	result, newLock, err := inst.Reconcile(context.Background(), desired, observed)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if !result.Empty() {
		t.Errorf("result should be empty: %+v", result)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("no fetches expected, got %v", fetcher.calls)
	}
	entry, _ := newLock.Find("a")
	if entry.Commit != "c1" || !entry.InstalledAt.Equal(prev) {
		t.Errorf("unchanged entry was modified: %+v", entry)
	}
}

func TestReconcileMissingDirectoryReinstalls(t *testing.T) {
	// The record lists the extension but its directory is gone:
	// inconsistent state, must be repaired, not silently ignored.
	inst, fetcher, _ := newTestInstaller(t)

	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "a", Source: config.Source{Repo: "org/a", Tag: "v1.0"}}},
	}
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "a", Kind: config.Plugin, Source: config.Source{Repo: "org/a", Tag: "v1.0"}, Commit: "c1"},
	}}

	result, newLock, err := inst.Reconcile(context.Background(), desired, observed)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(result.Updated) != 1 {
		t.Errorf("updated = %+v, want reinstall of a", result.Updated)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %v, want one", fetcher.calls)
	}
	entry, _ := newLock.Find("a")
	if entry.Commit == "c1" {
		t.Error("commit not refreshed after reinstall")
	}
}

func TestReconcileFetchFailureProducesNoRecord(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)
	fetcher.err = fmt.Errorf("network down")

	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "a", Source: config.Source{Repo: "org/a"}}},
	}

	_, newLock, err := inst.Reconcile(context.Background(), desired, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if newLock != nil {
		t.Error("no record may be produced when an action fails")
	}
	if got := err.Error(); !errors.Is(err, fetcher.err) || got == "" {
		t.Errorf("error should wrap the fetch failure: %v", err)
	}
}

func TestReconcileFetchErrorNamesEntry(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)
	fetcher.err = fmt.Errorf("boom")

	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "broken_ext", Source: config.Source{Repo: "org/x"}}},
	}
	_, _, err := inst.Reconcile(context.Background(), desired, nil)
	if err == nil || !strings.Contains(err.Error(), "broken_ext") {
		t.Errorf("error should name the failing entry: %v", err)
	}
}

func TestReconcileHookFailureAbortsRun(t *testing.T) {
	// A hook failure is fatal to the whole run: the fetched working
	// copy stays on disk, but no new record is persisted for any entry.
	inst, _, hook := newTestInstaller(t)
	hook.err = fmt.Errorf("bundle install failed")

	desired := &config.ExtensionsConfig{
		Plugins: []config.Extension{{Name: "a", Source: config.Source{Repo: "org/a"}}},
	}

	_, newLock, err := inst.Reconcile(context.Background(), desired, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if newLock != nil {
		t.Error("hook failure must not yield a record")
	}
	if !strings.Contains(err.Error(), "plugin setup for a") {
		t.Errorf("error should name the phase and entry: %v", err)
	}
	if _, statErr := os.Stat(inst.Config.ExtensionDir(config.Plugin, "a")); statErr != nil {
		t.Error("fetched working copy should not be rolled back")
	}
}

func TestHookNotRunForThemes(t *testing.T) {
	inst, _, hook := newTestInstaller(t)
	desired := &config.ExtensionsConfig{
		Themes: []config.Extension{{Name: "th", Source: config.Source{URL: "https://x/th.git"}}},
	}

	if _, _, err := inst.Reconcile(context.Background(), desired, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(hook.calls) != 0 {
		t.Errorf("hook calls = %v, want none for themes", hook.calls)
	}
}

func TestUninstallAll(t *testing.T) {
	inst, _, _ := newTestInstaller(t)

	for _, name := range []string{"a", "b"} {
		if err := os.MkdirAll(inst.Config.ExtensionDir(config.Plugin, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "a", Kind: config.Plugin, Source: config.Source{Repo: "org/a"}},
		{Name: "b", Kind: config.Plugin, Source: config.Source{Repo: "org/b"}},
	}}

	result, err := inst.UninstallAll(observed)
	if err != nil {
		t.Fatalf("UninstallAll: %v", err)
	}
	if len(result.Removed) != 2 {
		t.Errorf("removed = %d, want 2", len(result.Removed))
	}
	if _, err := os.Stat(inst.Config.ExtensionDir(config.Plugin, "a")); !os.IsNotExist(err) {
		t.Error("directory of a still exists")
	}
}

func TestReinstall(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)

	dir := inst.Config.ExtensionDir(config.Plugin, "a")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "a", Kind: config.Plugin, Source: config.Source{Repo: "org/a", Tag: "v1.0"}, Commit: "c1"},
	}}

	newLock, err := inst.Reinstall(context.Background(), "a", observed)
	if err != nil {
		t.Fatalf("Reinstall: %v", err)
	}

	if fetcher.sawExisted[dir] {
		t.Error("reinstall must remove the directory before fetching")
	}
	entry, _ := newLock.Find("a")
	if entry.Commit == "c1" {
		t.Error("commit not refreshed")
	}
}

func TestReinstallUnknownName(t *testing.T) {
	inst, _, _ := newTestInstaller(t)
	_, err := inst.Reinstall(context.Background(), "ghost", &lock.LockFile{})

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if notFound.Name != "ghost" {
		t.Errorf("name = %q", notFound.Name)
	}
}

func TestUpdateRefreshesOnlyChangedCommits(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)
	fetcher.commit = "3333333333333333333333333333333333333333"

	prev := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"moves", "pinned"} {
		if err := os.MkdirAll(inst.Config.ExtensionDir(config.Plugin, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "moves", Kind: config.Plugin, Source: config.Source{Repo: "org/m"}, Commit: "old", InstalledAt: prev},
		{Name: "pinned", Kind: config.Plugin, Source: config.Source{Repo: "org/p"}, Commit: "3333333333333333333333333333333333333333", InstalledAt: prev},
	}}

	result, newLock, err := inst.Update(context.Background(), nil, observed)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(result.Updated) != 1 || result.Updated[0].Name != "moves" {
		t.Errorf("updated = %+v, want [moves]", result.Updated)
	}
	if len(result.Unchanged) != 1 || result.Unchanged[0].Name != "pinned" {
		t.Errorf("unchanged = %+v, want [pinned]", result.Unchanged)
	}

	moved, _ := newLock.Find("moves")
	if moved.Commit != "3333333333333333333333333333333333333333" || moved.InstalledAt.Equal(prev) {
		t.Errorf("moves entry not refreshed: %+v", moved)
	}
	pinned, _ := newLock.Find("pinned")
	if !pinned.InstalledAt.Equal(prev) {
		t.Error("pinned entry should be untouched")
	}
}

func TestUpdateUnknownName(t *testing.T) {
	inst, _, _ := newTestInstaller(t)
	_, _, err := inst.Update(context.Background(), []string{"ghost"}, &lock.LockFile{})

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestUpdateMissingDirectory(t *testing.T) {
	inst, _, _ := newTestInstaller(t)
	observed := &lock.LockFile{Extensions: []lock.LockedExtension{
		{Name: "a", Kind: config.Plugin, Source: config.Source{Repo: "org/a"}},
	}}

	_, _, err := inst.Update(context.Background(), nil, observed)
	if err == nil || !strings.Contains(err.Error(), "directory") {
		t.Errorf("err = %v, want missing-directory error", err)
	}
}
