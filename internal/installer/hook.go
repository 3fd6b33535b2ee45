package installer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/runner"
)

// SetupHook runs post-install setup for a plugin working copy. The
// installer treats it as a single opaque external call.
type SetupHook interface {
	Setup(ctx context.Context, pluginDir, name string) error
}

// PluginSetup is the production hook: bundle install when the plugin
// ships a Gemfile, then Redmine plugin migrations when db/migrate is
// non-empty.
type PluginSetup struct {
	Config *config.Config
	Runner *runner.Runner
	Logger *slog.Logger
}

func (p *PluginSetup) Setup(ctx context.Context, pluginDir, name string) error {
	if _, err := os.Stat(filepath.Join(pluginDir, "Gemfile")); err == nil {
		if p.Logger != nil {
			p.Logger.Info("running bundle install", "plugin", name)
		}
		if err := p.Runner.Run(ctx, pluginDir, "bundle", "install"); err != nil {
			return err
		}
	}

	if hasEntries(filepath.Join(pluginDir, "db", "migrate")) {
		if p.Logger != nil {
			p.Logger.Info("running plugin migrations", "plugin", name)
		}
		if err := p.Runner.Run(ctx, p.Config.RedmineRoot,
			"bundle", "exec", "rake", "redmine:plugins:migrate", "NAME="+name); err != nil {
			return err
		}
	}

	return nil
}

func hasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
