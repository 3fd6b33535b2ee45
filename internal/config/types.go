package config

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two extension categories Redmine knows about.
type Kind string

const (
	Plugin Kind = "plugin"
	Theme  Kind = "theme"
)

// Source identifies where an extension's code lives and which revision
// to use. Exactly one of URL and Repo is set; at most one of Branch,
// Tag and Commit is set.
type Source struct {
	// URL is a direct git repository URL.
	URL string `yaml:"url,omitempty"`

	// Repo is a GitHub shorthand ("owner/name") expanded by FullURL.
	Repo string `yaml:"repo,omitempty"`

	Branch string `yaml:"branch,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
	Commit string `yaml:"commit,omitempty"`
}

// FullURL returns the canonical clone URL for the source.
func (s Source) FullURL() string {
	if s.URL != "" {
		return s.URL
	}
	if strings.HasPrefix(s.Repo, "http") {
		return s.Repo
	}
	return fmt.Sprintf("https://github.com/%s.git", s.Repo)
}

// Ref returns the requested reference, or "" for the default branch.
// Whether the value names a branch, a tag, or a commit is not decided
// here — the fetch backend resolves it by ordered trial.
func (s Source) Ref() string {
	switch {
	case s.Branch != "":
		return s.Branch
	case s.Tag != "":
		return s.Tag
	default:
		return s.Commit
	}
}

// Equal reports whether two sources denote the same checkout: the
// resolved canonical URL and the reference must both match.
func (s Source) Equal(other Source) bool {
	return s.FullURL() == other.FullURL() && s.Ref() == other.Ref()
}

// String renders the source for display, e.g. "redmica/redmine_issues_panel (tag v1.0.2)".
func (s Source) String() string {
	loc := s.URL
	if loc == "" {
		loc = s.Repo
	}
	switch {
	case s.Branch != "":
		return fmt.Sprintf("%s (branch %s)", loc, s.Branch)
	case s.Tag != "":
		return fmt.Sprintf("%s (tag %s)", loc, s.Tag)
	case s.Commit != "":
		return fmt.Sprintf("%s (commit %s)", loc, s.Commit)
	default:
		return loc
	}
}

// Extension is one declared plugin or theme.
type Extension struct {
	Name   string `yaml:"name"`
	Source Source `yaml:",inline"`
}

// ExtensionsConfig represents the .extensions.yml desired-state file.
type ExtensionsConfig struct {
	Plugins []Extension `yaml:"plugins"`
	Themes  []Extension `yaml:"themes"`
}

// Declared pairs an extension with its kind.
type Declared struct {
	Extension Extension
	Kind      Kind
}

// All returns every declared extension, plugins first.
func (c *ExtensionsConfig) All() []Declared {
	all := make([]Declared, 0, len(c.Plugins)+len(c.Themes))
	for _, e := range c.Plugins {
		all = append(all, Declared{Extension: e, Kind: Plugin})
	}
	for _, e := range c.Themes {
		all = append(all, Declared{Extension: e, Kind: Theme})
	}
	return all
}
