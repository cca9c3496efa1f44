// Particle-cfg is a command line client for the Particle cloud platform.
//
// It provides device listing and inspection, cloud compilation of firmware
// sources, OTA flashing, event monitoring, and credential management for
// Particle IoT devices. The tool talks to the Particle REST API over HTTPS
// and stores its session token in a local configuration file.
//
// Usage:
//
//	particle-cfg [command] [flags]
//
// See 'particle-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dlkinney/particle-go/internal/logging"
	"github.com/dlkinney/particle-go/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging init failed: %v\n", err)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "particle-cfg",
	Short: "Particle Cloud Device Utility",
	Long: `A standalone utility for working with Particle IoT devices through
the Particle cloud.

Provides device listing, cloud firmware compilation, over-the-air
flashing, live event monitoring, and credential management.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("particle-cfg %s (commit: %s)\n", version.Version, version.Commit)
	},
}
