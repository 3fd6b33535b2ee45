package cmd

import (
	"fmt"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/lock"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the current state of installed extensions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newConfig()
		if err != nil {
			return err
		}

		lf, err := loadLock(cfg)
		if err != nil {
			return err
		}
		if lf == nil || len(lf.Extensions) == 0 {
			fmt.Println("No extensions installed")
			return nil
		}

		fmt.Printf("rex: %s\n", version)
		printKind(lf, config.Plugin, "Plugins")
		printKind(lf, config.Theme, "Themes")
		return nil
	},
}

func printKind(lf *lock.LockFile, kind config.Kind, heading string) {
	exts := lf.ByKind(kind)
	if len(exts) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", heading)
	for _, ext := range exts {
		line := ext.Source.String()
		if ext.Commit != "" {
			line = fmt.Sprintf("%s, installed: %s", line, shortCommit(ext.Commit))
		}
		fmt.Printf(" * %s (%s)\n", ext.Name, line)
	}
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
