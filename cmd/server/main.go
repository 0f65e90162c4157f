package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fetanpay/paylink/internal/config"
	"github.com/fetanpay/paylink/internal/infrastructure/crypto"
	"github.com/fetanpay/paylink/internal/infrastructure/database"
	"github.com/fetanpay/paylink/internal/infrastructure/gateway"
	httpServer "github.com/fetanpay/paylink/internal/infrastructure/http"
	"github.com/fetanpay/paylink/internal/pkg/logger"
	"github.com/fetanpay/paylink/internal/pkg/messaging"
	"github.com/fetanpay/paylink/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Service.Environment != "production",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Credential encryption for per-merchant gateway secrets
	cipher, err := crypto.NewAESCredentialCipher(cfg.Service.CredentialKey)
	if err != nil {
		zapLogger.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}

	// Gateway registry resolves per-merchant provider clients on demand
	registry := gateway.NewRegistry(cfg, repos.Merchant, cipher, zapLogger)

	// Settlement events are best effort; run without a broker when Redis
	// is not configured
	var events messaging.Publisher
	if cfg.Service.Redis.Addr != "" {
		events, err = messaging.NewRedisPublisher(cfg.Service.Redis.Addr, cfg.Service.Redis.Password, cfg.Service.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer events.Close()
	}

	ledger := usecase.NewLedger(repos.Transaction, repos.PaymentLink, repos.Ledger, registry, events, cfg.Service.ClientURL, cfg.Service.PublicURL, zapLogger)
	ingest := usecase.NewWebhookIngest(repos.WebhookReceipt, ledger, registry, zapLogger)
	reconciler := usecase.NewReconciler(cfg.Reconcile, repos.Transaction, repos.PaymentLink, ledger, registry, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the background sweep
	reconciler.Start(ctx)

	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, cipher, ledger, ingest, reconciler)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")

	reconciler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
