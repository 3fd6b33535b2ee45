package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a .extensions.yml file.
func Load(path string) (*ExtensionsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading extensions file %s: %w", path, err)
	}

	var cfg ExtensionsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing extensions file %s: %w", path, err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("extensions file validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks an ExtensionsConfig for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *ExtensionsConfig) []string {
	var errs []string

	errs = append(errs, validateList("plugin", cfg.Plugins)...)
	errs = append(errs, validateList("theme", cfg.Themes)...)

	return errs
}

func validateList(kind string, exts []Extension) []string {
	var errs []string

	names := make(map[string]bool)
	for i, ext := range exts {
		prefix := fmt.Sprintf("%s[%d]", kind, i)
		if ext.Name != "" {
			prefix = fmt.Sprintf("%s '%s'", kind, ext.Name)
		}

		if ext.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		} else if !validName(ext.Name) {
			errs = append(errs, fmt.Sprintf("%s: invalid name '%s' — must be a plain directory name", prefix, ext.Name))
		} else if names[ext.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate %s name '%s'", prefix, kind, ext.Name))
		} else {
			names[ext.Name] = true
		}

		errs = append(errs, validateSource(ext.Source, prefix)...)
	}

	return errs
}

func validateSource(src Source, prefix string) []string {
	var errs []string

	switch {
	case src.URL == "" && src.Repo == "":
		errs = append(errs, fmt.Sprintf("%s: one of 'url' or 'repo' is required", prefix))
	case src.URL != "" && src.Repo != "":
		errs = append(errs, fmt.Sprintf("%s: 'url' and 'repo' are mutually exclusive — use one or the other", prefix))
	}

	refs := 0
	for _, r := range []string{src.Branch, src.Tag, src.Commit} {
		if r != "" {
			refs++
		}
	}
	if refs > 1 {
		errs = append(errs, fmt.Sprintf("%s: at most one of 'branch', 'tag' and 'commit' may be set", prefix))
	}

	return errs
}

// validName reports whether name is a single plain path segment, so
// that plugins/<name> cannot escape the Redmine root.
func validName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// InitialContent is the commented example written by `rex init`.
const InitialContent = `# Redmine Extensions Configuration
# Define plugins and themes to be managed by rex.

plugins:
  # Example plugin from GitHub
  # - name: redmine_issues_panel
  #   repo: redmica/redmine_issues_panel
  #   tag: v1.0.2

themes:
  # Example theme from a git repository
  # - name: my_theme
  #   url: https://github.com/user/my_theme.git
  #   branch: main
`

// WriteInitial creates a commented starter extensions file.
func WriteInitial(path string) error {
	if err := os.WriteFile(path, []byte(InitialContent), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
