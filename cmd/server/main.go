package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/suppression-hub/internal/api"
	"github.com/ignite/suppression-hub/internal/cache"
	"github.com/ignite/suppression-hub/internal/config"
	"github.com/ignite/suppression-hub/internal/pkg/distlock"
	"github.com/ignite/suppression-hub/internal/pkg/logger"
	"github.com/ignite/suppression-hub/internal/repository/postgres"
	"github.com/ignite/suppression-hub/internal/service/feedback"
	"github.com/ignite/suppression-hub/internal/service/suppression"
	"github.com/ignite/suppression-hub/internal/ses"
	"github.com/ignite/suppression-hub/internal/sns"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.DisableRedaction)

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Postgres
	if cfg.Database.URL == "" {
		log.Fatal("database.url is required (or set DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		// Not fatal: the webhook answers 503 until the database comes up,
		// and SNS redelivers.
		logger.Warn("database unreachable at startup", "error", err)
	}
	pingCancel()

	feedbackRepo := postgres.NewFeedbackRepo(db)
	suppressionRepo := postgres.NewSuppressionRepo(db)

	// Optional redis membership cache
	var redisClient *redis.Client
	var membershipCache *cache.SuppressionCache
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		membershipCache = cache.New(redisClient, cfg.Redis.TTL())
		logger.Info("suppression cache enabled", "addr", cfg.Redis.Addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional SES account-level mirror
	var mirror *ses.Mirror
	if cfg.SES.Enabled && cfg.SES.AccessKey != "" {
		sesClient, err := ses.NewClient(ctx, cfg.SES)
		if err != nil {
			logger.Warn("ses mirror disabled: client init failed", "error", err)
		} else {
			mirror = ses.NewMirror(sesClient, suppressionRepo, cfg.SES.ReconcileInterval(), cfg.SES.Timeout())
			// One instance reconciles at a time; redis when available,
			// otherwise a Postgres advisory lock.
			mirror.WithLock(distlock.NewLock(redisClient, db, "ses-reconcile", 5*time.Minute))
			go mirror.Start(ctx)
		}
	}

	var suppressionSinks []feedback.SuppressionSink
	var releaseSinks []suppression.ReleaseSink
	var cacheForService suppression.MembershipCache
	if membershipCache != nil {
		suppressionSinks = append(suppressionSinks, membershipCache)
		releaseSinks = append(releaseSinks, membershipCache)
		cacheForService = membershipCache
	}
	if mirror != nil {
		suppressionSinks = append(suppressionSinks, mirror)
		releaseSinks = append(releaseSinks, mirror)
	}

	feedbackSvc := feedback.NewService(feedbackRepo, suppressionSinks...)
	suppressionSvc := suppression.NewService(suppressionRepo, cacheForService, releaseSinks...)

	certs, err := sns.NewCertFetcher(nil, cfg.Webhook.CertHostPattern, cfg.Webhook.CertTimeout())
	if err != nil {
		log.Fatalf("Invalid cert host pattern: %v", err)
	}
	verifier := sns.NewVerifier(certs, cfg.Webhook.RequireTopicValidation, cfg.Webhook.AllowedTopicARNs)

	server := api.NewServer(*cfg, feedbackSvc, suppressionSvc, verifier, db, redisClient)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		logger.Info("server starting",
			"addr", addr,
			"webhook_enabled", cfg.Webhook.Enabled,
			"webhook_path", cfg.Webhook.Path,
			"topic_validation", cfg.Webhook.RequireTopicValidation)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("server stopped")
}
