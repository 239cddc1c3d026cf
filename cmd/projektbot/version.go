package main

import (
	"fmt"

	"github.com/spf13/cobra"

	projektserver "github.com/HendryAvila/projektbot/internal/server"
)

// versionCmd prints the build version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of projektbot",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "projektbot v%s\n", projektserver.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
