package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stacktester/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stacktester",
	Short: "stacktester runs stack-machine instruction streams against a transactional store",
	Long: `stacktester seeds instruction streams from a YAML script into a key-value store,
runs the root session and every session it starts, and prints the final stack.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}
