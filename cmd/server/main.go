package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"assetgate/internal/authority"
	compliancehandler "assetgate/internal/compliance/handler"
	compliancemetrics "assetgate/internal/compliance/metrics"
	complianceports "assetgate/internal/compliance/ports"
	complianceservice "assetgate/internal/compliance/service"
	usagestore "assetgate/internal/compliance/store/usage"
	ledgerhandler "assetgate/internal/ledger/handler"
	ledgerservice "assetgate/internal/ledger/service"
	"assetgate/internal/platform/config"
	"assetgate/internal/platform/httpserver"
	"assetgate/internal/platform/logger"
	platformredis "assetgate/internal/platform/redis"
	"assetgate/internal/ports"
	registryhandler "assetgate/internal/registry/handler"
	registrymetrics "assetgate/internal/registry/metrics"
	registryports "assetgate/internal/registry/ports"
	registryservice "assetgate/internal/registry/service"
	registrymemory "assetgate/internal/registry/store/memory"
	registrypostgres "assetgate/internal/registry/store/postgres"
	httptransport "assetgate/internal/transport/http"
	id "assetgate/pkg/domain"
	"assetgate/pkg/platform/audit"
	auditpublisher "assetgate/pkg/platform/audit/publisher"
	auditmemory "assetgate/pkg/platform/audit/store/memory"
	auditpostgres "assetgate/pkg/platform/audit/store/postgres"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	publisher, closePublisher, err := buildAuditPublisher(ctx, cfg, db)
	if err != nil {
		log.Error("audit publisher", "error", err)
		os.Exit(1)
	}
	defer closePublisher()

	authorizer := buildAuthorizer(cfg, log)

	var registryStore registryports.Store
	if db != nil {
		registryStore = registrypostgres.New(db)
	} else {
		registryStore = registrymemory.New()
	}

	registrySvc, err := registryservice.New(registryStore, authorizer,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(publisher),
		registryservice.WithMetrics(registrymetrics.New()),
	)
	if err != nil {
		log.Error("registry service", "error", err)
		os.Exit(1)
	}

	var usage complianceports.UsageStore
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		usage = usagestore.NewRedisStore(redisClient.Client)
	} else {
		usage = usagestore.NewInMemoryStore()
	}

	complianceSvc, err := complianceservice.New(registrySvc, usage, authorizer,
		complianceservice.WithLogger(log),
		complianceservice.WithAuditPublisher(publisher),
		complianceservice.WithMetrics(compliancemetrics.New()),
	)
	if err != nil {
		log.Error("compliance service", "error", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledgerservice.New(complianceSvc, authorizer,
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("ledger service", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Registry:      registryhandler.New(registrySvc, log),
		Compliance:    compliancehandler.New(complianceSvc, log),
		Ledger:        ledgerhandler.New(ledgerSvc, log),
		JWTSigningKey: []byte(cfg.JWTSigningKey),
		Logger:        log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting assetgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildAuditPublisher prefers the Kafka sink when brokers are configured,
// falling back to the store-backed publisher (postgres when available).
func buildAuditPublisher(ctx context.Context, cfg config.Server, db *sql.DB) (ports.AuditPublisher, func(), error) {
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := auditpublisher.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, err
		}
		return kafka, kafka.Close, nil
	}

	var store audit.Store
	if db != nil {
		store = auditpostgres.New(db)
	} else {
		store = auditmemory.NewInMemoryStore()
	}
	pub := auditpublisher.NewPublisher(store, auditpublisher.WithAsyncBuffer(256))
	return pub, pub.Close, nil
}

// buildAuthorizer resolves the controlling authority from configuration.
// A missing or malformed subject yields an authorizer that rejects every
// administrative call rather than one that lets anything through.
func buildAuthorizer(cfg config.Server, log *slog.Logger) ports.Authorizer {
	if cfg.AuthoritySubject == "" {
		log.Warn("AUTHORITY_SUBJECT not set; administrative operations will be rejected")
		return authority.NewStatic(id.ActorID{})
	}
	actor, err := id.ParseActorID(cfg.AuthoritySubject)
	if err != nil {
		log.Warn("invalid AUTHORITY_SUBJECT; administrative operations will be rejected", "error", err)
		return authority.NewStatic(id.ActorID{})
	}
	return authority.NewStatic(actor)
}
