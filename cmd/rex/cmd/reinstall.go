package cmd

import (
	"github.com/hidakatsuya/rexer/internal/lock"
	"github.com/spf13/cobra"
)

var reinstallCmd = &cobra.Command{
	Use:   "reinstall <name>",
	Short: "Reinstall a single extension at its recorded source",
	Args:  cobra.ExactArgs(1),
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
		newLock, err := inst.Reinstall(cmd.Context(), args[0], observed)
		if err != nil {
			return err
		}

		if err := lock.Save(cfg.LockFilePath(), newLock); err != nil {
			return err
		}

		info("Reinstalled %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reinstallCmd)
}
