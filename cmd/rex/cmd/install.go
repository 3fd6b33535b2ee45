package cmd

import (
	"github.com/hidakatsuya/rexer/internal/lock"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the extensions declared in .extensions.yml",
	Long: `Reconciles the declared extensions against the lock file: newly
declared extensions are installed, extensions whose source changed are
reinstalled from the new source, and extensions no longer declared are
removed. The lock file is rewritten only when every action succeeds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd)
	},
}

func runInstall(cmd *cobra.Command) error {
	cfg, err := newConfig()
	if err != nil {
		return err
	}

	desired, err := loadExtensions(cfg)
	if err != nil {
		return err
	}

	observed, err := loadLock(cfg)
	if err != nil {
		return err
	}

	inst := newInstaller(cfg)
	result, newLock, err := inst.Reconcile(cmd.Context(), desired, observed)
	if err != nil {
		return err
	}

	if err := lock.Save(cfg.LockFilePath(), newLock); err != nil {
		return err
	}

	printResult(result)
	if result.Empty() {
		info("Extensions are up to date")
	} else {
		info("Installed %d, updated %d, removed %d extension(s)",
			len(result.Installed), len(result.Updated), len(result.Removed))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(installCmd)
}
