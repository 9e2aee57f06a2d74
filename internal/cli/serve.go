package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/keepsake-bot/keepsake/internal/db"
	"github.com/keepsake-bot/keepsake/internal/queue"
	"github.com/keepsake-bot/keepsake/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Twilio webhook server",
	Long: `Serve listens for Twilio WhatsApp webhooks, persists each inbound
message as a pending job and enqueues its ID for the workers. It does no
LLM or media work itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dbClient, err := db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer dbClient.Close(context.Background())

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		q, err := queue.New(ctx, queue.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.QueueKey,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to queue: %w", err)
		}
		defer q.Close()

		webhook := server.NewWebhookHandler(dbClient, q, logger)
		return server.New(cfg.Port, webhook, logger).Start(ctx)
	},
}
