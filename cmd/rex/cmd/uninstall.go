package cmd

import (
	"github.com/hidakatsuya/rexer/internal/lock"
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall all installed extensions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newConfig()
		if err != nil {
			return err
		}

		observed, err := requireLock(cfg)
		if err != nil {
			return err
		}

		inst := newInstaller(cfg)
		result, err := inst.UninstallAll(observed)
		if err != nil {
			return err
		}

		if err := lock.Delete(cfg.LockFilePath()); err != nil {
			return err
		}

		printResult(result)
		info("Uninstalled %d extension(s)", len(result.Removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
