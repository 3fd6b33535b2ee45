package config

import "path/filepath"

// File names relative to the Redmine root.
const (
	ExtensionsFile = ".extensions.yml"
	LockFile       = ".extensions.lock"
)

// Config holds the resolved runtime configuration. It is built by the
// command layer and passed explicitly into the installer and fetch
// backend — core packages never read the environment themselves.
type Config struct {
	// RedmineRoot is the directory containing the Redmine installation.
	RedmineRoot string

	// CommandPrefix, when non-empty, is prepended verbatim to every
	// external process invocation (e.g. "docker compose exec app").
	CommandPrefix string
}

// ExtensionsFilePath returns the path of the desired-state file.
func (c *Config) ExtensionsFilePath() string {
	return filepath.Join(c.RedmineRoot, ExtensionsFile)
}

// LockFilePath returns the path of the installed-state lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.RedmineRoot, LockFile)
}

// PluginsDir returns the directory that holds installed plugins.
func (c *Config) PluginsDir() string {
	return filepath.Join(c.RedmineRoot, "plugins")
}

// ThemesDir returns the directory that holds installed themes.
func (c *Config) ThemesDir() string {
	return filepath.Join(c.RedmineRoot, "themes")
}

// ExtensionDir returns the destination directory for one extension.
func (c *Config) ExtensionDir(kind Kind, name string) string {
	if kind == Theme {
		return filepath.Join(c.ThemesDir(), name)
	}
	return filepath.Join(c.PluginsDir(), name)
}
