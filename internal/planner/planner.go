package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metroplanner/internal/common/logger"
	"github.com/metroplanner/internal/fare"
	"github.com/metroplanner/internal/routing"
	"github.com/metroplanner/pkg/network/models"
)

var ErrStationNotFound = errors.New("station not found")

// NetworkSource is the read side of a network store. LoadFarePolicy returns
// nil, nil when no policy is configured.
type NetworkSource interface {
	LoadNetwork(ctx context.Context) (*models.Network, error)
	LoadFarePolicy(ctx context.Context) (*models.FarePolicy, error)
}

// StationInfo is a station with the names of the lines serving it.
type StationInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Lines       []string `json:"lines"`
}

// LineInfo is a line with its station names in travel order.
type LineInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Stations []string `json:"stations"`
}

// snapshot is everything derived from one load of the store. It is never
// modified once published.
type snapshot struct {
	graph    *routing.Graph
	fares    *fare.Calculator
	stations []StationInfo
	lines    []LineInfo
}

type Planner struct {
	source NetworkSource
	logger logger.Logger

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

func New(source NetworkSource, logger logger.Logger) *Planner {
	return &Planner{source: source, logger: logger}
}

// Warm builds the graph now instead of on the first query.
func (p *Planner) Warm(ctx context.Context) error {
	_, err := p.load(ctx)
	return err
}

// Ready reports whether the graph has been built.
func (p *Planner) Ready() bool {
	return p.snap.Load() != nil
}

// load builds the snapshot at most once. A failed build is not stored, so
// the next caller tries again.
func (p *Planner) load(ctx context.Context) (*snapshot, error) {
	if s := p.snap.Load(); s != nil {
		return s, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.snap.Load(); s != nil {
		return s, nil
	}

	start := time.Now()
	network, err := p.source.LoadNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading network: %w", err)
	}
	policy, err := p.source.LoadFarePolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading fare policy: %w", err)
	}

	graph, err := routing.BuildGraph(network.Stations, network.Lines, network.Edges)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	s := &snapshot{
		graph:    graph,
		fares:    fare.NewCalculator(policy),
		stations: stationListing(network),
		lines:    lineListing(network),
	}
	p.snap.Store(s)

	p.logger.Info("Route graph built",
		"stations", graph.Len(),
		"lines", len(network.Lines),
		"edges", len(network.Edges),
		"fare_policy", policy != nil,
		"duration_ms", time.Since(start).Milliseconds())

	return s, nil
}

func (s *snapshot) resolve(from, to string) (string, string, error) {
	fromID, ok := s.graph.ResolveStationID(from)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrStationNotFound, from)
	}
	toID, ok := s.graph.ResolveStationID(to)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrStationNotFound, to)
	}
	return fromID, toID, nil
}

// FindShortestPath returns nil, nil when the stations are not connected.
func (p *Planner) FindShortestPath(ctx context.Context, from, to string) (*routing.PathResult, error) {
	s, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	fromID, toID, err := s.resolve(from, to)
	if err != nil {
		return nil, err
	}
	return routing.ShortestPath(s.graph, fromID, toID), nil
}

// FindLeastInterchangePath returns nil, nil when the stations are not
// connected.
func (p *Planner) FindLeastInterchangePath(ctx context.Context, from, to string) (*routing.PathResult, error) {
	s, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	fromID, toID, err := s.resolve(from, to)
	if err != nil {
		return nil, err
	}
	return routing.LeastInterchangePath(s.graph, fromID, toID), nil
}

func (p *Planner) CalculateFare(ctx context.Context, distanceMeters, interchanges int) (float64, error) {
	s, err := p.load(ctx)
	if err != nil {
		return 0, err
	}
	return s.fares.Calculate(distanceMeters, interchanges)
}

// Stations lists every station sorted by name.
func (p *Planner) Stations(ctx context.Context) ([]StationInfo, error) {
	s, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.stations, nil
}

// Lines lists every line sorted by name.
func (p *Planner) Lines(ctx context.Context) ([]LineInfo, error) {
	s, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.lines, nil
}

func stationListing(network *models.Network) []StationInfo {
	lineNames := make(map[string]string, len(network.Lines))
	for _, l := range network.Lines {
		lineNames[l.ID] = l.Name
	}

	serving := make(map[string][]string)
	for _, m := range network.LineStations {
		if name, ok := lineNames[m.LineID]; ok {
			serving[m.StationID] = append(serving[m.StationID], name)
		}
	}

	out := make([]StationInfo, 0, len(network.Stations))
	for _, st := range network.Stations {
		lines := serving[st.ID]
		sort.Strings(lines)
		if lines == nil {
			lines = []string{}
		}
		out = append(out, StationInfo{
			ID:          st.ID,
			Name:        st.Name,
			DisplayName: st.DisplayName,
			Lines:       lines,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func lineListing(network *models.Network) []LineInfo {
	stationNames := make(map[string]string, len(network.Stations))
	for _, st := range network.Stations {
		stationNames[st.ID] = st.Name
	}

	members := make(map[string][]models.LineStation)
	for _, m := range network.LineStations {
		members[m.LineID] = append(members[m.LineID], m)
	}

	out := make([]LineInfo, 0, len(network.Lines))
	for _, l := range network.Lines {
		ms := members[l.ID]
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].Position < ms[j].Position })

		names := make([]string, 0, len(ms))
		for _, m := range ms {
			if name, ok := stationNames[m.StationID]; ok {
				names = append(names, name)
			}
		}
		out = append(out, LineInfo{ID: l.ID, Name: l.Name, Color: l.Color, Stations: names})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
