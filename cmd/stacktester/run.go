package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stacktester/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Seed a script and run its root session",
	Long: `Loads the instruction streams of a YAML script, writes them into the configured
store, runs the root session until it and all of its child sessions finish,
and prints the root session's stack.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{ScriptPath: args[0], Out: cmd.OutOrStdout(), Logs: os.Stderr}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.Prefix, _ = cmd.Flags().GetString("prefix")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		opts.BatchSize, _ = cmd.Flags().GetInt("batch")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return ctx.Interrupted(cli.Execute(ctx, opts))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("store", "", "Store backend (memory or redis)")
	runCmd.Flags().String("redis", "", "Redis address (used with --store redis)")
	runCmd.Flags().String("prefix", "", "Root session prefix, overrides the script's root")
	runCmd.Flags().String("metrics-addr", "", "Serve /metrics, /healthz and /transactions on this address")
	runCmd.Flags().Int("batch", 0, "Instructions read per range request")
}
