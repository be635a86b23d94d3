package planner

import (
	"context"
	"fmt"

	"github.com/metroplanner/internal/routing"
)

// FaredPath is a route together with its fare in major currency units.
type FaredPath struct {
	routing.PathResult
	Fare float64 `json:"fare"`
}

// Journey is the combined answer for one query. LeastInterchange is nil
// when it would repeat Shortest.
type Journey struct {
	Shortest         *FaredPath `json:"shortest"`
	LeastInterchange *FaredPath `json:"leastInterchange"`
}

// Found is false when the stations are not connected.
func (j *Journey) Found() bool {
	return j != nil && (j.Shortest != nil || j.LeastInterchange != nil)
}

// Plan runs both searches for one query and prices every route returned.
func (p *Planner) Plan(ctx context.Context, from, to string) (*Journey, error) {
	s, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	fromID, toID, err := s.resolve(from, to)
	if err != nil {
		return nil, err
	}

	shortest := routing.ShortestPath(s.graph, fromID, toID)
	least := routing.LeastInterchangePath(s.graph, fromID, toID)
	if shortest.SameRoute(least) {
		least = nil
	}

	journey := &Journey{}
	if journey.Shortest, err = s.price(shortest); err != nil {
		return nil, err
	}
	if journey.LeastInterchange, err = s.price(least); err != nil {
		return nil, err
	}

	if !journey.Found() {
		p.logger.Debug("No path found", "from", from, "to", to)
	}
	return journey, nil
}

func (s *snapshot) price(path *routing.PathResult) (*FaredPath, error) {
	if path == nil {
		return nil, nil
	}
	amount, err := s.fares.Calculate(path.TotalDistance, path.Interchanges)
	if err != nil {
		return nil, fmt.Errorf("calculating fare: %w", err)
	}
	return &FaredPath{PathResult: *path, Fare: amount}, nil
}
