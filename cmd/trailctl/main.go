// Package main provides trailctl, the operator CLI for the audit trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0-dev"
	configPath string
	output     string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trailctl",
		Short:         "Inspect the audit trail and manage the datatrail database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", formatTable, "Output format: table, json or yaml")

	rootCmd.AddCommand(
		newQueryCmd(),
		newCountCmd(),
		newFollowCmd(),
		newMigrateCmd(),
		newTokenCmd(),
	)
	return rootCmd
}
