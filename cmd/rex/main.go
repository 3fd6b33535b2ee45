package main

import (
	"os"

	"github.com/hidakatsuya/rexer/cmd/rex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
