package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/metroplanner/internal/common/db"
	"github.com/metroplanner/internal/network/parser"
	"github.com/metroplanner/pkg/network/models"
)

type Importer struct {
	db        *db.DB
	versionID int
	batchSize int
}

func NewImporter(database *db.DB, versionID int) *Importer {
	return &Importer{
		db:        database,
		versionID: versionID,
		batchSize: 1000,
	}
}

// ReadNetwork parses a dataset directory or zip into a network with fresh ids.
func ReadNetwork(ctx context.Context, p *parser.Parser, source string) (*models.Network, []*parser.LineData, error) {
	var lines []*parser.LineData
	callbacks := parser.ParseCallbacks{
		OnLine: func(line *parser.LineData) error {
			lines = append(lines, line)
			return nil
		},
	}

	if err := p.Parse(ctx, source, callbacks); err != nil {
		return nil, nil, fmt.Errorf("parsing dataset: %w", err)
	}

	network, err := BuildNetwork(lines, func() string { return uuid.NewString() })
	if err != nil {
		return nil, nil, err
	}
	return network, lines, nil
}

// BuildNetwork turns parsed lines into network records. A station shared by
// several lines becomes one Station with one membership per line.
func BuildNetwork(lines []*parser.LineData, newID func() string) (*models.Network, error) {
	network := &models.Network{}
	stationIDs := make(map[string]string)
	lineIDs := make(map[string]string)

	for _, line := range lines {
		if _, dup := lineIDs[line.Name]; dup {
			return nil, fmt.Errorf("duplicate line name %q in %s", line.Name, line.File)
		}
		lineID := newID()
		lineIDs[line.Name] = lineID
		network.Lines = append(network.Lines, models.Line{ID: lineID, Name: line.Name, Color: line.Color})

		onLine := make(map[string]bool)
		for pos, st := range line.Stations {
			if st.Name == "" {
				return nil, fmt.Errorf("station %q in %s normalizes to an empty name", st.DisplayName, line.File)
			}

			id, ok := stationIDs[st.Name]
			if !ok {
				id = newID()
				stationIDs[st.Name] = id
				network.Stations = append(network.Stations, models.Station{
					ID:          id,
					Name:        st.Name,
					DisplayName: st.DisplayName,
				})
			}

			if onLine[st.Name] {
				continue
			}
			onLine[st.Name] = true
			network.LineStations = append(network.LineStations, models.LineStation{
				LineID:    lineID,
				StationID: id,
				Position:  pos,
				Distance:  st.Distance,
			})
		}
	}

	for _, e := range parser.GenerateEdges(lines) {
		network.Edges = append(network.Edges, models.Edge{
			FromStationID: stationIDs[e.FromStation],
			ToStationID:   stationIDs[e.ToStation],
			LineID:        lineIDs[e.LineName],
			Distance:      e.Distance,
		})
	}

	return network, nil
}

// Import writes the network and fare policy under the importer's version in
// one transaction.
func (i *Importer) Import(ctx context.Context, network *models.Network, policy *models.FarePolicy) error {
	lineBatch := i.newBatchInserter("lines", 4)
	stationBatch := i.newBatchInserter("stations", 4)
	membershipBatch := i.newBatchInserter("station_lines", 5)
	edgeBatch := i.newBatchInserter("edges", 5)
	fareBatch := i.newBatchInserter("fare_policies", 4)

	tx, err := i.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	batches := []*batchInserter{lineBatch, stationBatch, membershipBatch, edgeBatch, fareBatch}
	for _, batch := range batches {
		batch.tx = tx
		batch.ctx = ctx
	}

	for _, l := range network.Lines {
		if err := lineBatch.Add(l.ID, i.versionID, l.Name, l.Color); err != nil {
			return fmt.Errorf("inserting lines: %w", err)
		}
	}
	for _, s := range network.Stations {
		if err := stationBatch.Add(s.ID, i.versionID, s.Name, s.DisplayName); err != nil {
			return fmt.Errorf("inserting stations: %w", err)
		}
	}
	for _, m := range network.LineStations {
		if err := membershipBatch.Add(m.StationID, m.LineID, i.versionID, m.Position, m.Distance); err != nil {
			return fmt.Errorf("inserting station lines: %w", err)
		}
	}
	for _, e := range network.Edges {
		if err := edgeBatch.Add(i.versionID, e.FromStationID, e.ToStationID, e.LineID, e.Distance); err != nil {
			return fmt.Errorf("inserting edges: %w", err)
		}
	}
	if policy != nil {
		if err := fareBatch.Add(i.versionID, policy.BaseFare, policy.PerKmRate, policy.InterchangeFee); err != nil {
			return fmt.Errorf("inserting fare policy: %w", err)
		}
	}

	for _, batch := range batches {
		if err := batch.Flush(); err != nil {
			return fmt.Errorf("flushing %s batch: %w", batch.tableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	i.db.Logger().Info("Import completed successfully",
		"version_id", i.versionID,
		"lines", len(network.Lines),
		"stations", len(network.Stations),
		"edges", len(network.Edges))

	return nil
}

type batchInserter struct {
	tableName  string
	columns    []string
	values     []interface{}
	valueCount int
	batchSize  int
	tx         *sql.Tx
	ctx        context.Context
	fieldCount int
}

func (i *Importer) newBatchInserter(tableName string, fieldCount int) *batchInserter {
	return &batchInserter{
		tableName:  tableName,
		columns:    getColumnsForTable(tableName),
		values:     make([]interface{}, 0, i.batchSize*fieldCount),
		batchSize:  i.batchSize,
		fieldCount: fieldCount,
	}
}

func (b *batchInserter) Add(values ...interface{}) error {
	if len(values) != b.fieldCount {
		return fmt.Errorf("%s expects %d values, got %d", b.tableName, b.fieldCount, len(values))
	}
	b.values = append(b.values, values...)
	b.valueCount++

	if b.valueCount >= b.batchSize {
		return b.Flush()
	}

	return nil
}

func (b *batchInserter) Flush() error {
	if b.valueCount == 0 {
		return nil
	}

	query := b.buildInsertQuery()
	_, err := b.tx.ExecContext(b.ctx, query, b.values...)
	if err != nil {
		return fmt.Errorf("executing batch insert: %w", err)
	}

	b.values = b.values[:0]
	b.valueCount = 0

	return nil
}

func (b *batchInserter) buildInsertQuery() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("INSERT INTO metro.%s (%s) VALUES ",
		b.tableName,
		strings.Join(b.columns, ", ")))

	for i := 0; i < b.valueCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < b.fieldCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", i*b.fieldCount+j+1))
		}
		sb.WriteString(")")
	}

	return sb.String()
}

func getColumnsForTable(tableName string) []string {
	switch tableName {
	case "lines":
		return []string{"line_id", "version_id", "name", "color"}
	case "stations":
		return []string{"station_id", "version_id", "name", "display_name"}
	case "station_lines":
		return []string{"station_id", "line_id", "version_id", "position", "distance"}
	case "edges":
		return []string{"version_id", "from_station_id", "to_station_id", "line_id", "distance"}
	case "fare_policies":
		return []string{"version_id", "base_fare", "per_km_rate", "interchange_fee"}
	default:
		return nil
	}
}
