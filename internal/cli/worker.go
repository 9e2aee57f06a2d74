package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/keepsake-bot/keepsake/internal/agent"
	"github.com/keepsake-bot/keepsake/internal/blob"
	"github.com/keepsake-bot/keepsake/internal/db"
	"github.com/keepsake-bot/keepsake/internal/delivery"
	"github.com/keepsake-bot/keepsake/internal/extract"
	"github.com/keepsake-bot/keepsake/internal/ingest"
	"github.com/keepsake-bot/keepsake/internal/intent"
	"github.com/keepsake-bot/keepsake/internal/llm"
	"github.com/keepsake-bot/keepsake/internal/queue"
	"github.com/keepsake-bot/keepsake/internal/service"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job processors",
	Long: `Worker consumes queued job IDs and runs each job to a terminal
state: media capture, note capture or question answering, followed by the
WhatsApp reply. Concurrency is set with KEEPSAKE_WORKER_CONCURRENCY.`,
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

		blobs, err := blob.New(ctx, blob.Config{
			Bucket:          cfg.StorageBucket,
			SignedURLTTL:    cfg.SignedURLTTL,
			CredentialsFile: cfg.GCPCredentials,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to blob storage: %w", err)
		}
		defer blobs.Close()

		chatModel, err := llm.NewModel(cfg, cfg.ChatModel)
		if err != nil {
			return fmt.Errorf("init chat model: %w", err)
		}
		ocrModel, err := llm.NewModel(cfg, cfg.OCRModel)
		if err != nil {
			return fmt.Errorf("init ocr model: %w", err)
		}
		embedder, err := llm.NewEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}

		sender, err := delivery.NewSender(delivery.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
			BaseURL:    cfg.TwilioBaseURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("init twilio sender: %w", err)
		}

		pipeline := ingest.New(dbClient, blobs, extract.New(ocrModel, logger), embedder, logger)
		classifier := intent.NewClassifier(chatModel, logger)
		answerer := agent.New(chatModel, embedder, dbClient, logger)

		processor := service.NewProcessor(dbClient, pipeline, classifier, answerer, sender, cfg.HistoryLimit, logger)

		logger.Info("worker starting", "concurrency", cfg.WorkerConcurrency)
		q.Consume(ctx, cfg.WorkerConcurrency, processor.Process)

		snap := processor.MetricsSnapshot()
		for op, stats := range snap.Operations {
			logger.Info("worker stats", "op", op, "count", stats.Count,
				"failures", stats.Failures, "avg_ms", stats.AvgTimeMs)
		}
		return nil
	},
}
