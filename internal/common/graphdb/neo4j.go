package graphdb

import (
	"fmt"

	"github.com/metroplanner/internal/common/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph layout:
//
//	(:Station {id, name, display_name})
//	(:Line {id, name, color})
//	(:Station)-[:ON_LINE {position, distance}]->(:Line)
//	(:Station)-[:CONNECTS {line_id, distance, seq}]->(:Station)
//	(:FarePolicy {base_fare, per_km_rate, interchange_fee})
type Database struct {
	Driver neo4j.Driver
	logger logger.Logger
}

func New(uri, username, password string, log logger.Logger) (*Database, error) {
	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	log.Info("Connected to neo4j", "uri", uri)
	return &Database{Driver: driver, logger: log}, nil
}

func (d *Database) Close() error {
	return d.Driver.Close()
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// asInt accepts the integer widths the driver may hand back; anything else,
// including a missing property, reads as zero.
func asInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
