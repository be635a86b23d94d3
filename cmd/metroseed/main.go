package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/metroplanner/internal/common/config"
	"github.com/metroplanner/internal/common/db"
	"github.com/metroplanner/internal/common/graphdb"
	"github.com/metroplanner/internal/common/logger"
	"github.com/metroplanner/internal/common/maintenance"
	"github.com/metroplanner/internal/network/seeder"
	"github.com/metroplanner/pkg/network/models"
)

func main() {
	force := flag.Bool("force", false, "import even if the dataset is not newer than the active version")
	dir := flag.String("dir", "", "dataset directory or zip, overrides DATASET_DIR")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("Failed to load .env file: " + err.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if *dir != "" {
		cfg.Dataset.Dir = *dir
	}

	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.FilePath = cfg.Logging.FilePath
	loggerConfig.File = cfg.Logging.FilePath != ""
	loggerConfig.DiscordURL = cfg.Logging.DiscordURL
	log := logger.NewFromConfig(loggerConfig)

	log.Info("Metro dataset seeder starting",
		"store", cfg.Store.Driver,
		"dir", cfg.Dataset.Dir,
		"url", cfg.Dataset.URL,
		"force", *force,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seedCfg := seeder.Config{
		Dir:                  cfg.Dataset.Dir,
		URL:                  cfg.Dataset.URL,
		DownloadDir:          cfg.Dataset.DownloadDir,
		CheckInterval:        cfg.Dataset.CheckInterval,
		KeepInactiveVersions: cfg.Dataset.KeepInactiveVersions,
		Force:                *force,
		FarePolicy: models.FarePolicy{
			BaseFare:       cfg.Dataset.BaseFare,
			PerKmRate:      cfg.Dataset.PerKmRate,
			InterchangeFee: cfg.Dataset.InterchangeFee,
		},
	}

	var s *seeder.Seeder
	switch cfg.Store.Driver {
	case "neo4j":
		graph, err := graphdb.New(cfg.Store.Neo4jURI, cfg.Store.Neo4jUser, cfg.Store.Neo4jPassword, log)
		if err != nil {
			log.Fatal("Failed to connect to neo4j", "error", err)
		}
		defer graph.Close()
		s = seeder.New(seedCfg, nil, seeder.Neo4jSink{DB: graph}, nil, log)
	default:
		database, err := db.New(cfg.Database.ConnectionString(), log)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare schema", "error", err)
		}
		s = seeder.New(seedCfg,
			db.NewVersionChecker(database),
			seeder.PostgresSink{DB: database},
			maintenance.New(database, log),
			log)
	}

	if cfg.Dataset.CheckInterval > 0 {
		if err := s.Start(ctx); err != nil {
			log.Error("Seeder error", "error", err)
		}
		log.Info("Metro dataset seeder stopped")
		return
	}

	if err := s.RunOnce(ctx); err != nil {
		log.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	log.Info("Metro dataset seeder finished")
}
