package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fadedpez/ledger/internal/config"
	internaldiscord "github.com/fadedpez/ledger/internal/discord"
	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/pkg/discord"
	"github.com/fadedpez/ledger/pkg/discord/commands"
	"github.com/fadedpez/ledger/pkg/repositories/balance"
	"github.com/fadedpez/ledger/pkg/repositories/wallet"
	"github.com/fadedpez/ledger/pkg/scheduler"
	"github.com/fadedpez/ledger/pkg/services/history"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Error initializing balance repository: %v", err)
	}
	defer repo.Close()

	service := history.NewService(repo, history.SystemClock{}, logger)

	// Balance capture is optional
	var capturer scheduler.Capturer
	if cfg.CaptureEnabled() {
		source, err := wallet.NewSQLiteSource(cfg.WalletDBPath)
		if err != nil {
			log.Fatalf("Error opening wallet database: %v", err)
		}
		defer source.Close()
		capturer = history.NewRecorder(service, source)
	} else {
		logger.Info("WALLET_DB_PATH not set, balance capture disabled")
	}

	maintenance := scheduler.NewLedgerScheduler(service, capturer, cfg.PurgeInterval, logger)
	maintenance.Start(ctx)
	defer maintenance.Stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = startMetricsServer(cfg.MetricsAddr, logger)
	}

	var bot *discord.Bot
	if cfg.DiscordEnabled() {
		session, err := internaldiscord.NewSession(cfg.Token)
		if err != nil {
			log.Fatalf("Error creating Discord session: %v", err)
		}

		bot = discord.NewBot(session, cfg.AppID, cfg.GuildID, commands.NewHistoryCommand(service, logger), logger)
		if err := bot.Start(); err != nil {
			log.Fatalf("Error starting bot: %v", err)
		}
	}

	logger.Info("Ledger is running with %s storage. Press Ctrl+C to exit", cfg.StorageType)
	<-ctx.Done()

	logger.Info("Shutting down...")
	if bot != nil {
		if err := bot.Stop(); err != nil {
			logger.Error("Error stopping bot: %v", err)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping metrics server: %v", err)
		}
	}
}

// openRepository builds the balance repository selected by STORAGE_TYPE
func openRepository(ctx context.Context, cfg *config.Config, logger *logging.Logger) (balance.Repository, error) {
	switch cfg.StorageType {
	case config.StorageMemory:
		logger.Warn("Using in-memory balance history (data will be lost on restart)")
		return balance.NewMemoryRepository(), nil

	case config.StorageSQLite:
		logger.Info("Initializing SQLite repository at %s", cfg.SQLitePath)
		return balance.NewSQLiteRepository(cfg.SQLitePath)

	case config.StoragePostgres:
		logger.Info("Initializing PostgreSQL repository")
		return balance.NewPostgresRepository(cfg.PostgresDSN)

	case config.StorageElasticsearch:
		esConfig := balance.DefaultElasticsearchConfig()
		esConfig.URL = cfg.ElasticsearchURL
		esConfig.Username = cfg.ElasticsearchUsername
		esConfig.Password = cfg.ElasticsearchPassword
		esConfig.IndexPrefix = cfg.ElasticsearchIndexPrefix

		logger.Info("Initializing Elasticsearch repository at %s", cfg.ElasticsearchURL)
		return balance.NewElasticsearchRepository(ctx, esConfig)
	}

	return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
}

func startMetricsServer(addr string, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	return server
}
