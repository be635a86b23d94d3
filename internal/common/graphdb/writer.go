package graphdb

import (
	"fmt"

	"github.com/metroplanner/pkg/network/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ReplaceNetwork swaps the stored graph for the given network in a single
// write transaction.
func (d *Database) ReplaceNetwork(network *models.Network, policy *models.FarePolicy) error {
	session := d.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		if _, err := tx.Run(`MATCH (n) WHERE n:Station OR n:Line OR n:FarePolicy DETACH DELETE n`, nil); err != nil {
			return nil, fmt.Errorf("clearing network: %w", err)
		}

		if _, err := tx.Run(`
			UNWIND $rows AS row
			CREATE (:Station {id: row.id, name: row.name, display_name: row.display_name})
		`, map[string]interface{}{"rows": stationRows(network.Stations)}); err != nil {
			return nil, fmt.Errorf("creating stations: %w", err)
		}

		if _, err := tx.Run(`
			UNWIND $rows AS row
			CREATE (:Line {id: row.id, name: row.name, color: row.color})
		`, map[string]interface{}{"rows": lineRows(network.Lines)}); err != nil {
			return nil, fmt.Errorf("creating lines: %w", err)
		}

		if _, err := tx.Run(`
			UNWIND $rows AS row
			MATCH (s:Station {id: row.station_id}), (l:Line {id: row.line_id})
			CREATE (s)-[:ON_LINE {position: row.position, distance: row.distance}]->(l)
		`, map[string]interface{}{"rows": membershipRows(network.LineStations)}); err != nil {
			return nil, fmt.Errorf("creating memberships: %w", err)
		}

		if _, err := tx.Run(`
			UNWIND $rows AS row
			MATCH (a:Station {id: row.from}), (b:Station {id: row.to})
			CREATE (a)-[:CONNECTS {line_id: row.line_id, distance: row.distance, seq: row.seq}]->(b)
		`, map[string]interface{}{"rows": edgeRows(network.Edges)}); err != nil {
			return nil, fmt.Errorf("creating edges: %w", err)
		}

		if policy != nil {
			if _, err := tx.Run(`
				CREATE (:FarePolicy {base_fare: $base, per_km_rate: $perKm, interchange_fee: $fee})
			`, map[string]interface{}{
				"base":  policy.BaseFare,
				"perKm": policy.PerKmRate,
				"fee":   policy.InterchangeFee,
			}); err != nil {
				return nil, fmt.Errorf("creating fare policy: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("replacing network in neo4j: %w", err)
	}

	d.logger.Info("Replaced network in neo4j",
		"stations", len(network.Stations),
		"lines", len(network.Lines),
		"edges", len(network.Edges))
	return nil
}

func stationRows(stations []models.Station) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(stations))
	for _, s := range stations {
		rows = append(rows, map[string]interface{}{
			"id":           s.ID,
			"name":         s.Name,
			"display_name": s.DisplayName,
		})
	}
	return rows
}

func lineRows(lines []models.Line) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, map[string]interface{}{
			"id":    l.ID,
			"name":  l.Name,
			"color": l.Color,
		})
	}
	return rows
}

func membershipRows(members []models.LineStation) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(members))
	for _, m := range members {
		rows = append(rows, map[string]interface{}{
			"line_id":    m.LineID,
			"station_id": m.StationID,
			"position":   int64(m.Position),
			"distance":   int64(m.Distance),
		})
	}
	return rows
}

// edgeRows numbers edges so reads can restore insertion order.
func edgeRows(edges []models.Edge) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(edges))
	for i, e := range edges {
		rows = append(rows, map[string]interface{}{
			"from":     e.FromStationID,
			"to":       e.ToStationID,
			"line_id":  e.LineID,
			"distance": int64(e.Distance),
			"seq":      int64(i),
		})
	}
	return rows
}
