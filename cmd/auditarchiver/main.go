package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"assetgate/internal/platform/config"
	"assetgate/internal/platform/logger"
	"assetgate/pkg/platform/audit/consumer"
	auditpostgres "assetgate/pkg/platform/audit/store/postgres"
)

// main runs the audit archiver: it consumes the Kafka audit topic and
// appends every event to the Postgres audit store.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if len(cfg.Kafka.Brokers) == 0 {
		log.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}
	if cfg.PostgresDSN == "" {
		log.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("ping postgres", "error", err)
		os.Exit(1)
	}

	archiver, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group,
		auditpostgres.New(db), log)
	if err != nil {
		log.Error("kafka consumer", "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("archiving audit events",
			"topic", cfg.Kafka.Topic,
			"group", cfg.Kafka.Group,
		)
		return archiver.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		archiver.Close()
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("archiver error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
