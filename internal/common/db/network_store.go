package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/metroplanner/pkg/network/models"
)

// NetworkStore reads the active network dataset. It only issues full scans
// and single-row lookups; the planner builds its graph from the result.
type NetworkStore struct {
	db       *DB
	versions *VersionChecker
}

func NewNetworkStore(database *DB) *NetworkStore {
	return &NetworkStore{
		db:       database,
		versions: NewVersionChecker(database),
	}
}

func (s *NetworkStore) LoadNetwork(ctx context.Context) (*models.Network, error) {
	versionID, err := s.versions.activeVersionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving active version: %w", err)
	}

	var network models.Network

	if network.Stations, err = s.loadStations(ctx, versionID); err != nil {
		return nil, err
	}
	if network.Lines, err = s.loadLines(ctx, versionID); err != nil {
		return nil, err
	}
	if network.LineStations, err = s.loadLineStations(ctx, versionID); err != nil {
		return nil, err
	}
	if network.Edges, err = s.loadEdges(ctx, versionID); err != nil {
		return nil, err
	}

	s.db.logger.Info("Loaded network",
		"version_id", versionID,
		"stations", len(network.Stations),
		"lines", len(network.Lines),
		"edges", len(network.Edges))

	return &network, nil
}

// LoadFarePolicy returns nil without error when the active version has no
// policy.
func (s *NetworkStore) LoadFarePolicy(ctx context.Context) (*models.FarePolicy, error) {
	versionID, err := s.versions.activeVersionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving active version: %w", err)
	}

	var policy models.FarePolicy
	err = s.db.conn.QueryRowContext(ctx, `
		SELECT base_fare, per_km_rate, interchange_fee
		FROM metro.fare_policies
		WHERE version_id = $1
	`, versionID).Scan(&policy.BaseFare, &policy.PerKmRate, &policy.InterchangeFee)

	if errors.Is(err, sql.ErrNoRows) {
		s.db.logger.Warn("No fare policy configured", "version_id", versionID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying fare policy: %w", err)
	}
	return &policy, nil
}

func (s *NetworkStore) loadStations(ctx context.Context, versionID int) ([]models.Station, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT station_id, name, display_name
		FROM metro.stations
		WHERE version_id = $1
		ORDER BY name
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stations: %w", err)
	}
	return stations, nil
}

func (s *NetworkStore) loadLines(ctx context.Context, versionID int) ([]models.Line, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT line_id, name, color
		FROM metro.lines
		WHERE version_id = $1
		ORDER BY name
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("querying lines: %w", err)
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lines: %w", err)
	}
	return lines, nil
}

func (s *NetworkStore) loadLineStations(ctx context.Context, versionID int) ([]models.LineStation, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT line_id, station_id, position, distance
		FROM metro.station_lines
		WHERE version_id = $1
		ORDER BY line_id, position
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("querying station lines: %w", err)
	}
	defer rows.Close()

	var members []models.LineStation
	for rows.Next() {
		var m models.LineStation
		if err := rows.Scan(&m.LineID, &m.StationID, &m.Position, &m.Distance); err != nil {
			return nil, fmt.Errorf("scanning station line: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating station lines: %w", err)
	}
	return members, nil
}

func (s *NetworkStore) loadEdges(ctx context.Context, versionID int) ([]models.Edge, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT from_station_id, to_station_id, line_id, distance
		FROM metro.edges
		WHERE version_id = $1
		ORDER BY edge_id
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.FromStationID, &e.ToStationID, &e.LineID, &e.Distance); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}
	return edges, nil
}
