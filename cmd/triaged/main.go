// Triaged is a first-line triage agent for repository issues.
//
// Per issue or follow-up comment it decides whether an automated answer is
// authoritative or the issue must be handed to a human team, and it
// incrementally improves a shared knowledge base from validated outcomes.
//
// Usage:
//
//	# One-shot triage of a single issue
//	triaged process 1234
//
//	# Webhook server mode
//	triaged serve
//
// Configuration is loaded from a YAML file (--config) overridden by
// environment variables; see internal/config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML configuration file.
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "triaged",
	Short: "First-line triage agent for repository issues",
	Long: `triaged answers support issues automatically when it can do so
authoritatively, hands off to a human team when it cannot, and learns from
validated outcomes into a shared knowledge base.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(serveCmd)
}
