package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightframe/investigator/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "investigate",
	Short:   "Run and manage OSINT-style investigations",
	Long:    `investigate drives the agent loop against a goal, streams its own progress, and can save or resume the resulting session.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(investigateCmd, searchCmd, workflowCmd, statusCmd)
}

// loadConfig reads runtime configuration or exits with a usage-level
// failure message; command RunE funcs call this first rather than
// duplicating the error-reporting boilerplate.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "investigate: %v\n", err)
		os.Exit(2)
	}
	return cfg
}
