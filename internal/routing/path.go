package routing

// Hop is one station of a route together with the line used to reach it.
// The first hop of every route has no line.
type Hop struct {
	StationID string `json:"-"`
	Station   string `json:"station"`
	LineID    string `json:"-"`
	Line      string `json:"line,omitempty"`
}

type PathResult struct {
	Path          []Hop `json:"path"`
	TotalDistance int   `json:"totalDistance"`
	Interchanges  int   `json:"interchanges"`
}

// SameRoute reports whether both results visit the same stations on the
// same lines in the same order. A nil result never matches.
func (p *PathResult) SameRoute(other *PathResult) bool {
	if p == nil || other == nil {
		return false
	}
	if len(p.Path) != len(other.Path) {
		return false
	}
	for i := range p.Path {
		if p.Path[i].StationID != other.Path[i].StationID || p.Path[i].LineID != other.Path[i].LineID {
			return false
		}
	}
	return true
}

// Stations returns the station names along the route.
func (p *PathResult) Stations() []string {
	names := make([]string, len(p.Path))
	for i, h := range p.Path {
		names[i] = h.Station
	}
	return names
}

func newHop(g *Graph, stationID, lineID string) Hop {
	return Hop{
		StationID: stationID,
		Station:   g.StationName(stationID),
		LineID:    lineID,
		Line:      g.LineName(lineID),
	}
}
