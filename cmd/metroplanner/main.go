package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/metroplanner/internal/api"
	"github.com/metroplanner/internal/cache"
	"github.com/metroplanner/internal/common/config"
	"github.com/metroplanner/internal/common/db"
	"github.com/metroplanner/internal/common/graphdb"
	"github.com/metroplanner/internal/common/logger"
	"github.com/metroplanner/internal/planner"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("Failed to load .env file: " + err.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.FilePath = cfg.Logging.FilePath
	loggerConfig.File = cfg.Logging.FilePath != ""
	loggerConfig.DiscordURL = cfg.Logging.DiscordURL
	log := logger.NewFromConfig(loggerConfig)

	log.Info("Metro planner starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"store", cfg.Store.Driver,
		"cache", cfg.Cache.Backend,
		"addr", cfg.Server.Addr,
	)

	source, closeSource, err := openSource(cfg, log)
	if err != nil {
		log.Fatal("Failed to open network store", "driver", cfg.Store.Driver, "error", err)
	}
	defer closeSource.Close()

	responses, err := openCache(cfg, log)
	if err != nil {
		log.Fatal("Failed to open response cache", "backend", cfg.Cache.Backend, "error", err)
	}
	defer responses.Close()

	routePlanner := planner.New(source, log)

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	if err := routePlanner.Warm(warmCtx); err != nil {
		log.Error("Initial graph build failed, will retry on first request", "error", err)
	}
	cancelWarm()

	handler := api.NewHandler(routePlanner, responses, cfg.Cache.TTL, log)
	server := api.NewServer(cfg.Server, handler, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server error", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	log.Info("Metro planner stopped")
}

func openSource(cfg *config.Config, log logger.Logger) (planner.NetworkSource, io.Closer, error) {
	switch cfg.Store.Driver {
	case "neo4j":
		graph, err := graphdb.New(cfg.Store.Neo4jURI, cfg.Store.Neo4jUser, cfg.Store.Neo4jPassword, log)
		if err != nil {
			return nil, nil, err
		}
		return graphdb.NewNetworkSource(graph), graph, nil
	default:
		database, err := db.New(cfg.Database.ConnectionString(), log)
		if err != nil {
			return nil, nil, err
		}
		return db.NewNetworkStore(database), database, nil
	}
}

func openCache(cfg *config.Config, log logger.Logger) (cache.Cache, error) {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, log)
	}
	return cache.NewMemoryCache(cfg.Cache.Size, log), nil
}
