/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/feastro/apiserver/config"
	"github.com/feastro/apiserver/internal/observability"
	"github.com/feastro/apiserver/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverPort     int
	serverLogLevel string
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the feastro API server",
	Long: `Starts the feastro API server. Configuration comes from the
environment (and .env when ENV=dev); flags override it. Usage:

	feastro server --port 8080
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if cmd.Flags().Changed("port") {
			cfg.ServerPort = serverPort
		}
		if serverLogLevel != "" {
			cfg.LogLevel = serverLogLevel
		}
		logger := observability.NewLogger(cfg.LogFormat, cfg.LogLevel)

		srv, err := server.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			_ = srv.Shutdown()
			return err
		case <-cmd.Context().Done():
			logger.Info("shutting down")
			return srv.Shutdown()
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "listen port (overrides SERVER_PORT)")
	serverCmd.Flags().StringVar(&serverLogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}
