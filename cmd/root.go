/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "feastro",
	Short: "Feastro recipe video backend",
	Long: `Feastro serves the recipe and short video API.

	feastro server        start the HTTP API
	feastro worker        consume engagement events
	feastro migrate up    apply database migrations
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it with a
// context that is cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
