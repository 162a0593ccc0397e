package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuzvak/storefront-service/internal/application/ports"
	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/infrastructure/catalogapi"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/server"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/storefront-service/internal/infrastructure/persistence/memory"
	"github.com/yuzvak/storefront-service/internal/infrastructure/persistence/postgres"
	"github.com/yuzvak/storefront-service/internal/infrastructure/persistence/redis"
	"github.com/yuzvak/storefront-service/internal/infrastructure/scheduler"
	"github.com/yuzvak/storefront-service/internal/pkg/clock"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	bootLog := logger.NewLogger()
	cfg, configErr := config.LoadConfig(*configPath)
	if configErr != nil {
		bootLog.Fatal("Failed to load configuration", "error", configErr)
	}

	log, logErr := logger.NewLoggerWithLevel(cfg.LogLevel)
	if logErr != nil {
		bootLog.Fatal("Failed to build logger", "error", logErr)
	}
	defer log.Sync()
	log.Info("Starting storefront service", "session_backend", cfg.Session.Backend)

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	clk := clock.NewRealClock()
	store, storeErr := newCartStore(serverCtx, cfg, clk, log)
	if storeErr != nil {
		log.Fatal("Failed to initialise session store", "backend", cfg.Session.Backend, "error", storeErr)
	}
	defer store.Close()

	var sweeper *scheduler.SessionSweeper
	if expiring, ok := store.(ports.ExpiringCartStore); ok {
		sweeper = scheduler.NewSessionSweeper(expiring, clk, log, cfg.Session.SweepInterval())
		go sweeper.Start(serverCtx)
	}

	catalog := catalogapi.NewClient(cfg.Catalog)
	httpServer, serverErr := server.NewServer(cfg, catalog, store, nil, log)
	if serverErr != nil {
		log.Fatal("Failed to build HTTP server", "error", serverErr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info("Shutting down server...")
		if sweeper != nil {
			sweeper.Stop()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		serverStopCtx()
	}()

	log.Info("Server starting", "address", cfg.Server.Addr(), "catalog", cfg.Catalog.BaseURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed", "error", err)
	}

	<-stopped
	log.Info("Server stopped")
}

func newCartStore(ctx context.Context, cfg *config.Config, clk clock.Clock, log *logger.Logger) (ports.CartStore, error) {
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return memory.NewCartStore(cfg.Session.TTL(), clk), nil

	case config.BackendRedis:
		conn, err := redis.NewConnection(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redis.NewCartStore(conn, cfg.Session, cfg.Redis, log), nil

	case config.BackendPostgres:
		conn, err := postgres.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, conn.GetDB(), migrationsFS(cfg.Database.MigrationsPath), log); err != nil {
			conn.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		monitoring.NewDBMetricsCollector(conn.GetDB()).StartCollecting(ctx, 30*time.Second)
		return postgres.NewCartStore(conn, cfg.Session.TTL(), clk, log), nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// migrationsFS prefers an on-disk migrations directory and falls back to the
// schema compiled into the binary.
func migrationsFS(path string) fs.FS {
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return os.DirFS(path)
		}
	}
	return postgres.Migrations()
}
