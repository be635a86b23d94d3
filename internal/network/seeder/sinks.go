package seeder

import (
	"context"

	"github.com/metroplanner/internal/common/db"
	"github.com/metroplanner/internal/common/graphdb"
	"github.com/metroplanner/internal/network/importer"
	"github.com/metroplanner/pkg/network/models"
)

// PostgresSink batch-inserts the network under the new version.
type PostgresSink struct {
	DB *db.DB
}

func (s PostgresSink) Write(ctx context.Context, versionID int, network *models.Network, policy *models.FarePolicy) error {
	return importer.NewImporter(s.DB, versionID).Import(ctx, network, policy)
}

// Neo4jSink replaces the whole stored graph.
type Neo4jSink struct {
	DB *graphdb.Database
}

func (s Neo4jSink) Write(ctx context.Context, versionID int, network *models.Network, policy *models.FarePolicy) error {
	return s.DB.ReplaceNetwork(network, policy)
}
