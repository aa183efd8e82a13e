// Package main is the entry point for the timbercalc CLI.
package main

import (
	"os"

	"timbercalc/cmd/cli/cmd"
	"timbercalc/core/ui"
	"timbercalc/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		ui.NewWriter(os.Stderr, false).Error("%v", err)
		os.Exit(1)
	}
}
