package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/git"
	"github.com/hidakatsuya/rexer/internal/installer"
	"github.com/hidakatsuya/rexer/internal/lock"
	"github.com/hidakatsuya/rexer/internal/runner"
)

// newConfig resolves the runtime configuration from the --root flag and
// the REXER_COMMAND_PREFIX environment variable. Core packages receive
// this struct and never consult the environment themselves.
func newConfig() (*config.Config, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root directory: %w", err)
	}
	return &config.Config{
		RedmineRoot:   root,
		CommandPrefix: os.Getenv("REXER_COMMAND_PREFIX"),
	}, nil
}

// newLogger builds the slog logger driven by the verbosity flags.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newInstaller wires the installer with the dual-strategy fetch
// backend and the production plugin setup hook.
func newInstaller(cfg *config.Config) *installer.Installer {
	logger := newLogger()
	run := &runner.Runner{Prefix: cfg.CommandPrefix, Logger: logger}
	return &installer.Installer{
		Config:  cfg,
		Fetcher: git.New(run, logger),
		Hook:    &installer.PluginSetup{Config: cfg, Runner: run, Logger: logger},
		Logger:  logger,
	}
}

// loadExtensions reads and validates the desired-state file.
func loadExtensions(cfg *config.Config) (*config.ExtensionsConfig, error) {
	path := cfg.ExtensionsFilePath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("extensions file not found: %s — run 'rex init' to create one", path)
	}
	return config.Load(path)
}

// loadLock reads the lock file; nil means no record (fresh install).
func loadLock(cfg *config.Config) (*lock.LockFile, error) {
	return lock.Load(cfg.LockFilePath())
}

// requireLock reads the lock file and fails when no record exists.
func requireLock(cfg *config.Config) (*lock.LockFile, error) {
	lf, err := loadLock(cfg)
	if err != nil {
		return nil, err
	}
	if lf == nil {
		return nil, fmt.Errorf("no lock file found at %s — nothing is installed", cfg.LockFilePath())
	}
	return lf, nil
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// printResult summarizes a reconciliation result.
func printResult(result *installer.Result) {
	for _, a := range result.Installed {
		info("  installed  %s (%s)", a.Name, shortCommit(a.Commit))
	}
	for _, a := range result.Updated {
		info("  updated    %s (%s)", a.Name, shortCommit(a.Commit))
	}
	for _, a := range result.Removed {
		info("  removed    %s", a.Name)
	}
	for _, a := range result.Unchanged {
		detail("unchanged  %s", a.Name)
	}
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
