package cmd

import (
	"fmt"
	"os"

	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter .extensions.yml file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newConfig()
		if err != nil {
			return err
		}

		path := cfg.ExtensionsFilePath()
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("%s already exists\n", path)
			return nil
		}

		if err := config.WriteInitial(path); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
