package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@test.com",
		"GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_SYSTEM=/dev/null",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", "add "+name)
	return runGit(t, dir, "rev-parse", "HEAD")
}

// testRepo is a local origin with known branches, tags and commits.
type testRepo struct {
	Path string

	// First is the first commit on main; Tip is the latest.
	First string
	Tip   string

	// Feature is the tip of the "feature" branch, branched off First.
	Feature string

	// Tagged is the commit the "v1.0" tag points at (== First).
	Tagged string
}

// newTestRepo builds an origin repository:
//
//	main:    First -- Tip
//	feature: First -- Feature
//	tag v1.0 -> First (annotated)
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	requireGit(t)

	dir := filepath.Join(t.TempDir(), "origin")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "init")
	runGit(t, dir, "checkout", "-b", "main")

	first := commitFile(t, dir, "README.md", "first")
	runGit(t, dir, "tag", "-a", "v1.0", "-m", "release v1.0")

	runGit(t, dir, "checkout", "-b", "feature")
	feature := commitFile(t, dir, "feature.txt", "feature work")

	runGit(t, dir, "checkout", "main")
	tip := commitFile(t, dir, "main.txt", "mainline work")

	return &testRepo{Path: dir, First: first, Tip: tip, Feature: feature, Tagged: first}
}

// addDualRef creates a branch and a tag that share one name but point
// at different commits, for precedence tests. Returns the branch
// commit and the tag commit.
func (r *testRepo) addDualRef(t *testing.T, name string) (branchCommit, tagCommit string) {
	t.Helper()
	runGit(t, r.Path, "branch", name, r.Feature)
	runGit(t, r.Path, "tag", name, r.First)
	return r.Feature, r.First
}

// advanceMain adds a commit to main and returns the new tip.
func (r *testRepo) advanceMain(t *testing.T) string {
	t.Helper()
	runGit(t, r.Path, "checkout", "main")
	r.Tip = commitFile(t, r.Path, "more.txt", "more work")
	return r.Tip
}
