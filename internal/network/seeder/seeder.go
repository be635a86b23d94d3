package seeder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/metroplanner/internal/common/logger"
	"github.com/metroplanner/internal/network/downloader"
	"github.com/metroplanner/internal/network/importer"
	"github.com/metroplanner/internal/network/parser"
	"github.com/metroplanner/pkg/network/models"
)

type VersionStore interface {
	HasNewerVersion(ctx context.Context, lastModified time.Time) (bool, error)
	CreateNewVersion(ctx context.Context, versionName string, sourceURL string, lastModified time.Time) (int, error)
	ActivateVersion(ctx context.Context, versionID int) error
}

// Sink receives a parsed network. versionID is zero when no VersionStore is
// configured.
type Sink interface {
	Write(ctx context.Context, versionID int, network *models.Network, policy *models.FarePolicy) error
}

type Cleaner interface {
	PerformPostImportMaintenance(ctx context.Context, keepInactiveVersions int) error
}

type Config struct {
	Dir                  string
	URL                  string
	DownloadDir          string
	CheckInterval        time.Duration
	KeepInactiveVersions int
	Force                bool
	FarePolicy           models.FarePolicy
}

type Seeder struct {
	config     Config
	versions   VersionStore
	sink       Sink
	cleaner    Cleaner
	downloader downloader.Downloader
	parser     *parser.Parser
	logger     logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// New builds a seeder. versions and cleaner may be nil for stores that keep
// a single unversioned copy of the network.
func New(config Config, versions VersionStore, sink Sink, cleaner Cleaner, logger logger.Logger) *Seeder {
	return &Seeder{
		config:     config,
		versions:   versions,
		sink:       sink,
		cleaner:    cleaner,
		downloader: downloader.NewHTTPDownloader(logger),
		parser:     parser.New(logger),
		logger:     logger,
	}
}

// Start seeds once, then again every CheckInterval until ctx is done.
func (s *Seeder) Start(ctx context.Context) error {
	if s.config.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive, got %v", s.config.CheckInterval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("seeder already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("Starting dataset seeder",
		"url", s.config.URL,
		"dir", s.config.Dir,
		"check_interval", s.config.CheckInterval)

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Initial seed failed", "error", err)
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Seeder stopped")
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Scheduled seed failed", "error", err)
			}
		}
	}
}

func (s *Seeder) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("seeder not running")
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// RunOnce imports the dataset if it is newer than the active version, or
// unconditionally when Force is set or no VersionStore is configured.
func (s *Seeder) RunOnce(ctx context.Context) error {
	source, sourceURL, lastModified, cleanup, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if s.versions != nil && !s.config.Force {
		hasNewer, err := s.versions.HasNewerVersion(ctx, lastModified)
		if err != nil {
			return fmt.Errorf("checking version: %w", err)
		}
		if !hasNewer {
			s.logger.Info("Dataset unchanged, skipping import", "source", source)
			return nil
		}
	}

	network, lines, err := importer.ReadNetwork(ctx, s.parser, source)
	if err != nil {
		return err
	}

	interchanges := parser.InterchangeStations(lines)
	s.logger.Info("Parsed dataset",
		"lines", len(network.Lines),
		"stations", len(network.Stations),
		"edges", len(network.Edges),
		"interchange_stations", len(interchanges))
	s.logger.Debug("Interchange stations", "stations", interchanges)

	policy := s.config.FarePolicy

	versionID := 0
	versionName := fmt.Sprintf("metro_%s", lastModified.UTC().Format("2006-01-02_15:04:05"))
	if s.versions != nil {
		versionID, err = s.versions.CreateNewVersion(ctx, versionName, sourceURL, lastModified)
		if err != nil {
			return fmt.Errorf("creating version: %w", err)
		}
	}

	if err := s.sink.Write(ctx, versionID, network, &policy); err != nil {
		s.logger.Error("Import failed, version will remain inactive",
			"version_id", versionID,
			"error", err)
		return fmt.Errorf("importing data: %w", err)
	}

	if s.versions != nil {
		if err := s.versions.ActivateVersion(ctx, versionID); err != nil {
			return fmt.Errorf("activating version: %w", err)
		}
	}

	s.logger.Info("Successfully imported network data",
		"version_id", versionID,
		"version_name", versionName)

	if s.cleaner != nil {
		if err := s.cleaner.PerformPostImportMaintenance(ctx, s.config.KeepInactiveVersions); err != nil {
			s.logger.Warn("Post-import maintenance failed", "error", err)
		}
	}

	return nil
}

// fetch resolves the dataset to a local path, downloading it when a URL is
// configured. cleanup removes anything fetch created.
func (s *Seeder) fetch(ctx context.Context) (source, sourceURL string, lastModified time.Time, cleanup func(), err error) {
	cleanup = func() {}

	if s.config.URL == "" {
		lastModified, err = parser.LastModified(s.config.Dir)
		if err != nil {
			return "", "", time.Time{}, cleanup, err
		}
		abs, absErr := filepath.Abs(s.config.Dir)
		if absErr != nil {
			abs = s.config.Dir
		}
		return s.config.Dir, "file://" + abs, lastModified, cleanup, nil
	}

	dest := filepath.Join(s.config.DownloadDir,
		fmt.Sprintf("metro_dataset_%s.zip", time.Now().UTC().Format("20060102_150405")))

	lastModified, err = s.downloader.Download(ctx, s.config.URL, dest)
	if err != nil {
		return "", "", time.Time{}, cleanup, fmt.Errorf("downloading dataset: %w", err)
	}
	return dest, s.config.URL, lastModified, func() { os.Remove(dest) }, nil
}
