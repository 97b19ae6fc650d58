// Package cmd defines the deckhand command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"deckhand/pkg/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "Container fleet control-plane server",
	Long: `Deckhand watches a container runtime and serves inventory, usage
metrics, lifecycle events and a policy-gated exec gateway over HTTP.`,
}

// Execute runs the CLI. Build info is injected by main via ldflags.
func Execute(build, commit, date string) {
	version.Set(build, commit, date)
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./deckhand.yaml)")
}
