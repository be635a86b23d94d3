package routing

import (
	"errors"
	"fmt"

	"github.com/metroplanner/pkg/network/models"
)

var ErrNegativeDistance = errors.New("negative edge distance")

// Neighbor is one entry of a station's adjacency set.
type Neighbor struct {
	StationID string
	Distance  int
	LineID    string
}

// Graph is the read-only adjacency view of the network. It is built once
// and shared by every query; nothing in this package mutates it afterwards.
type Graph struct {
	adjacency    map[string][]Neighbor
	stationNames map[string]string // id -> name
	stationIDs   map[string]string // name -> id
	lineNames    map[string]string // id -> name
}

// BuildGraph derives the adjacency sets from the full station and edge
// collections. Neighbors keep the order in which edges were supplied.
func BuildGraph(stations []models.Station, lines []models.Line, edges []models.Edge) (*Graph, error) {
	g := &Graph{
		adjacency:    make(map[string][]Neighbor, len(stations)),
		stationNames: make(map[string]string, len(stations)),
		stationIDs:   make(map[string]string, len(stations)),
		lineNames:    make(map[string]string, len(lines)),
	}

	for _, s := range stations {
		g.adjacency[s.ID] = nil
		g.stationNames[s.ID] = s.Name
		g.stationIDs[s.Name] = s.ID
	}

	for _, l := range lines {
		g.lineNames[l.ID] = l.Name
	}

	seen := make(map[string]map[Neighbor]struct{}, len(stations))
	add := func(from string, n Neighbor) {
		set, ok := seen[from]
		if !ok {
			set = make(map[Neighbor]struct{})
			seen[from] = set
		}
		if _, dup := set[n]; dup {
			return
		}
		set[n] = struct{}{}
		g.adjacency[from] = append(g.adjacency[from], n)
	}

	for _, e := range edges {
		if e.Distance < 0 {
			return nil, fmt.Errorf("edge %s -> %s on line %s: %w", e.FromStationID, e.ToStationID, e.LineID, ErrNegativeDistance)
		}
		if e.FromStationID == e.ToStationID {
			continue
		}
		if _, ok := g.adjacency[e.FromStationID]; !ok {
			g.adjacency[e.FromStationID] = nil
		}
		if _, ok := g.adjacency[e.ToStationID]; !ok {
			g.adjacency[e.ToStationID] = nil
		}
		add(e.FromStationID, Neighbor{StationID: e.ToStationID, Distance: e.Distance, LineID: e.LineID})
		add(e.ToStationID, Neighbor{StationID: e.FromStationID, Distance: e.Distance, LineID: e.LineID})
	}

	return g, nil
}

// Neighbors returns the adjacency set of a station. Isolated and unknown
// stations yield an empty slice.
func (g *Graph) Neighbors(stationID string) []Neighbor {
	return g.adjacency[stationID]
}

// ResolveStationID looks up a station by its exact, case-sensitive name.
func (g *Graph) ResolveStationID(name string) (string, bool) {
	id, ok := g.stationIDs[name]
	return id, ok
}

// HasStation reports whether the id is a key of the graph.
func (g *Graph) HasStation(stationID string) bool {
	_, ok := g.adjacency[stationID]
	return ok
}

// StationName falls back to the id for stations only known through edges.
func (g *Graph) StationName(stationID string) string {
	if name, ok := g.stationNames[stationID]; ok {
		return name
	}
	return stationID
}

func (g *Graph) LineName(lineID string) string {
	if lineID == "" {
		return ""
	}
	if name, ok := g.lineNames[lineID]; ok {
		return name
	}
	return "Unknown"
}

// Len is the number of stations in the graph.
func (g *Graph) Len() int {
	return len(g.adjacency)
}
