package graphdb

import (
	"context"
	"fmt"

	"github.com/metroplanner/pkg/network/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NetworkSource serves the planner from a Neo4j copy of the network.
type NetworkSource struct {
	db *Database
}

func NewNetworkSource(db *Database) *NetworkSource {
	return &NetworkSource{db: db}
}

func (s *NetworkSource) LoadNetwork(ctx context.Context) (*models.Network, error) {
	session := s.db.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	out, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		var network models.Network

		result, err := tx.Run(`
			MATCH (s:Station)
			RETURN s.id, s.name, s.display_name
			ORDER BY s.name
		`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying stations: %w", err)
		}
		for result.Next() {
			v := result.Record().Values
			network.Stations = append(network.Stations, models.Station{
				ID:          asString(v[0]),
				Name:        asString(v[1]),
				DisplayName: asString(v[2]),
			})
		}
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("reading stations: %w", err)
		}

		result, err = tx.Run(`
			MATCH (l:Line)
			RETURN l.id, l.name, l.color
			ORDER BY l.name
		`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying lines: %w", err)
		}
		for result.Next() {
			v := result.Record().Values
			network.Lines = append(network.Lines, models.Line{
				ID:    asString(v[0]),
				Name:  asString(v[1]),
				Color: asString(v[2]),
			})
		}
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("reading lines: %w", err)
		}

		result, err = tx.Run(`
			MATCH (s:Station)-[r:ON_LINE]->(l:Line)
			RETURN l.id, s.id, r.position, r.distance
			ORDER BY l.id, r.position
		`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying station lines: %w", err)
		}
		for result.Next() {
			v := result.Record().Values
			network.LineStations = append(network.LineStations, models.LineStation{
				LineID:    asString(v[0]),
				StationID: asString(v[1]),
				Position:  int(asInt(v[2])),
				Distance:  int(asInt(v[3])),
			})
		}
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("reading station lines: %w", err)
		}

		result, err = tx.Run(`
			MATCH (a:Station)-[c:CONNECTS]->(b:Station)
			RETURN a.id, b.id, c.line_id, c.distance
			ORDER BY c.seq
		`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying edges: %w", err)
		}
		for result.Next() {
			v := result.Record().Values
			network.Edges = append(network.Edges, models.Edge{
				FromStationID: asString(v[0]),
				ToStationID:   asString(v[1]),
				LineID:        asString(v[2]),
				Distance:      int(asInt(v[3])),
			})
		}
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("reading edges: %w", err)
		}

		return &network, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading network from neo4j: %w", err)
	}

	network := out.(*models.Network)
	s.db.logger.Info("Loaded network from neo4j",
		"stations", len(network.Stations),
		"lines", len(network.Lines),
		"edges", len(network.Edges))
	return network, nil
}

// LoadFarePolicy returns nil without error when no FarePolicy node exists.
func (s *NetworkSource) LoadFarePolicy(ctx context.Context) (*models.FarePolicy, error) {
	session := s.db.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	out, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		result, err := tx.Run(`
			MATCH (f:FarePolicy)
			RETURN f.base_fare, f.per_km_rate, f.interchange_fee
			LIMIT 1
		`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying fare policy: %w", err)
		}
		if !result.Next() {
			return nil, result.Err()
		}
		v := result.Record().Values
		return &models.FarePolicy{
			BaseFare:       asInt(v[0]),
			PerKmRate:      asInt(v[1]),
			InterchangeFee: asInt(v[2]),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading fare policy from neo4j: %w", err)
	}

	if out == nil {
		s.db.logger.Warn("No fare policy configured in neo4j")
		return nil, nil
	}
	return out.(*models.FarePolicy), nil
}
