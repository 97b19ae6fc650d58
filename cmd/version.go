package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Println(version.Version())
			return
		}
		fmt.Printf("Deckhand %s\n", version.Version())
		fmt.Printf("Commit: %s\n", version.Commit())
		fmt.Printf("Built: %s\n", version.BuildDate())
	},
}

func init() {
	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
	rootCmd.AddCommand(versionCmd)
}
