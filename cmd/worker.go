/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/feastro/apiserver/config"
	"github.com/feastro/apiserver/internal/db"
	"github.com/feastro/apiserver/internal/mq"
	"github.com/feastro/apiserver/internal/observability"
	"github.com/feastro/apiserver/internal/services"
	"github.com/feastro/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// workerCmd consumes engagement events into the engagement log.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume engagement events into the engagement log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := observability.NewLogger(cfg.LogFormat, cfg.LogLevel)
		ctx := cmd.Context()

		broker, err := mq.New(ctx, cfg.MQ)
		if errors.Is(err, mq.ErrNoBackend) {
			return errors.New("worker requires MQ_BACKEND to be rabbitmq or pubsub")
		}
		if err != nil {
			return fmt.Errorf("init mq: %w", err)
		}
		defer broker.Close()

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		consumer := services.NewEngagementConsumer(broker, cfg.MQ.EngagementChannel,
			store.NewEngagementRepository(dbConn), logger)

		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
