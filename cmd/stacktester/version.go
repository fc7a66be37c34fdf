package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stacktester"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stacktester",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stacktester version %s\n", stacktester.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
