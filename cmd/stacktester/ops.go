package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stacktester/internal/cli"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Describe the instruction set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PrintReference(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(opsCmd)
}
