package cmd

import (
	"github.com/hidakatsuya/rexer/internal/lock"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [names...]",
	Short: "Update installed extensions to their latest revisions",
	Long: `Refetches the named extensions (all of them when no names are given)
at their recorded sources. Extensions tracking the default branch
fast-forward to its latest commit; extensions pinned to a reference
stay at that reference. The lock file is refreshed only for extensions
whose commit changed.`,
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
		result, newLock, err := inst.Update(cmd.Context(), args, observed)
		if err != nil {
			return err
		}

		if len(result.Updated) == 0 {
			info("All extensions are already up to date")
			return nil
		}

		if err := lock.Save(cfg.LockFilePath(), newLock); err != nil {
			return err
		}

		printResult(result)
		info("Updated %d extension(s)", len(result.Updated))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
