package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/metroplanner/internal/common/db"
	"github.com/metroplanner/internal/common/logger"
)

// networkTables are vacuumed after versions are removed.
var networkTables = []string{
	"metro.edges",
	"metro.station_lines",
	"metro.stations",
	"metro.lines",
	"metro.fare_policies",
	"metro.versions",
}

// VersionCleanupResult represents one removed network version
type VersionCleanupResult struct {
	VersionID   int       `json:"version_id"`
	VersionName string    `json:"version_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type inactiveVersion struct {
	id        int
	name      string
	updatedAt time.Time
}

// Maintenance handles database cleanup and maintenance operations
type Maintenance struct {
	db     *db.DB
	logger logger.Logger
}

func New(database *db.DB, logger logger.Logger) *Maintenance {
	return &Maintenance{
		db:     database,
		logger: logger,
	}
}

// CleanupOldVersions removes inactive network versions, keeping the active
// one and the keepInactiveVersions most recently updated inactive ones.
// Dataset rows go with their version through ON DELETE CASCADE.
func (m *Maintenance) CleanupOldVersions(ctx context.Context, keepInactiveVersions int) ([]VersionCleanupResult, error) {
	m.logger.Info("Starting cleanup of old network versions", "keep_inactive_versions", keepInactiveVersions)

	rows, err := m.db.DB().QueryContext(ctx, `
		SELECT version_id, version_name, updated_at
		FROM metro.versions
		WHERE is_active = false
		ORDER BY updated_at DESC, version_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying inactive versions: %w", err)
	}
	defer rows.Close()

	var inactive []inactiveVersion
	for rows.Next() {
		var v inactiveVersion
		if err := rows.Scan(&v.id, &v.name, &v.updatedAt); err != nil {
			return nil, fmt.Errorf("scanning inactive version: %w", err)
		}
		inactive = append(inactive, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inactive versions: %w", err)
	}

	expired := expiredVersions(inactive, keepInactiveVersions)
	if len(expired) == 0 {
		m.logger.Info("No network versions to clean up", "inactive_versions", len(inactive))
		return nil, nil
	}

	ids := make([]int64, len(expired))
	results := make([]VersionCleanupResult, len(expired))
	for i, v := range expired {
		ids[i] = int64(v.id)
		results[i] = VersionCleanupResult{VersionID: v.id, VersionName: v.name, UpdatedAt: v.updatedAt}
	}

	res, err := m.db.DB().ExecContext(ctx,
		`DELETE FROM metro.versions WHERE version_id = ANY($1) AND is_active = false`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("deleting old versions: %w", err)
	}
	deleted, _ := res.RowsAffected()

	for _, r := range results {
		m.logger.Info("Cleaned up network version",
			"version_id", r.VersionID,
			"version_name", r.VersionName)
	}
	m.logger.Info("Network version cleanup completed", "versions_deleted", deleted)

	if err := m.VacuumNetworkTables(ctx); err != nil {
		m.logger.Warn("Failed to vacuum network tables after cleanup", "error", err)
	}

	return results, nil
}

// expiredVersions expects versions newest first.
func expiredVersions(versions []inactiveVersion, keep int) []inactiveVersion {
	if keep < 0 {
		keep = 0
	}
	if len(versions) <= keep {
		return nil
	}
	return versions[keep:]
}

// VacuumNetworkTables runs VACUUM ANALYZE table by table. It must run outside
// a transaction.
func (m *Maintenance) VacuumNetworkTables(ctx context.Context) error {
	m.logger.Info("Starting VACUUM ANALYZE of network tables")

	failed := 0
	for _, table := range networkTables {
		start := time.Now()
		if _, err := m.db.DB().ExecContext(ctx, "VACUUM ANALYZE "+table); err != nil {
			failed++
			m.logger.Error("Failed to vacuum table", "table", table, "error", err)
			continue
		}
		m.logger.Debug("Vacuumed table", "table", table, "duration", time.Since(start))
	}

	m.logger.Info("VACUUM ANALYZE completed",
		"successful_tables", len(networkTables)-failed,
		"total_tables", len(networkTables))

	if failed > 0 {
		return fmt.Errorf("vacuum failed for %d out of %d tables", failed, len(networkTables))
	}
	return nil
}

// PerformPostImportMaintenance runs after a new version has been activated.
func (m *Maintenance) PerformPostImportMaintenance(ctx context.Context, keepInactiveVersions int) error {
	m.logger.Info("Performing post-import maintenance tasks")

	if _, err := m.CleanupOldVersions(ctx, keepInactiveVersions); err != nil {
		return fmt.Errorf("cleaning up old versions: %w", err)
	}

	m.logger.Info("Post-import maintenance completed successfully")
	return nil
}
