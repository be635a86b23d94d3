package routing

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/metroplanner/pkg/network/models"
)

func TestLeastInterchangeSingleLine(t *testing.T) {
	res := LeastInterchangePath(singleLine(t), "P", "R")
	if res == nil {
		t.Fatal("expected a path")
	}
	if got := res.Stations(); !reflect.DeepEqual(got, []string{"P", "Q", "R"}) {
		t.Errorf("expected [P Q R], got %v", got)
	}
	if res.TotalDistance != 2500 || res.Interchanges != 0 {
		t.Errorf("expected 2500m and 0 interchanges, got %dm and %d", res.TotalDistance, res.Interchanges)
	}
	if !res.SameRoute(ShortestPath(singleLine(t), "P", "R")) {
		t.Error("on a single line both searches should agree")
	}
}

func TestLeastInterchangePrefersStayingOnLine(t *testing.T) {
	g := withExpress(t)

	res := LeastInterchangePath(g, "P", "R")
	if res == nil {
		t.Fatal("expected a path")
	}
	if res.Interchanges != 0 {
		t.Errorf("expected 0 interchanges, got %d", res.Interchanges)
	}
	if res.TotalDistance != 2500 {
		t.Errorf("expected the longer single-line route (2500), got %d", res.TotalDistance)
	}
	if res.Path[2].LineID != "blue" {
		t.Errorf("expected to arrive on blue, got %q", res.Path[2].LineID)
	}

	if res.SameRoute(ShortestPath(g, "P", "R")) {
		t.Error("least-interchange route should differ from the shortest route here")
	}
}

func TestLeastInterchangeTieBrokenByDistance(t *testing.T) {
	// Both routes need one change and arrive on different lines; the one
	// through Y is shorter even though it is explored second.
	g := fixture(t, []string{"A", "X", "Y", "B"}, []string{"red", "blue", "green"}, []models.Edge{
		edge("A", "X", "red", 1000),
		edge("X", "B", "blue", 1000),
		edge("A", "Y", "red", 200),
		edge("Y", "B", "green", 300),
	})

	res := LeastInterchangePath(g, "A", "B")
	if res == nil {
		t.Fatal("expected a path")
	}
	if got := res.Stations(); !reflect.DeepEqual(got, []string{"A", "Y", "B"}) {
		t.Errorf("expected [A Y B], got %v", got)
	}
	if res.Interchanges != 1 || res.TotalDistance != 500 {
		t.Errorf("expected 1 interchange and 500m, got %d and %dm", res.Interchanges, res.TotalDistance)
	}
}

// TestLeastInterchangeDominanceKeepsFirstRoute pins the pruning behavior: the
// direct S-M segment reaches (M, express) first, so the shorter S-N-M walk on
// the same line is discarded even though it ties on interchanges.
func TestLeastInterchangeDominanceKeepsFirstRoute(t *testing.T) {
	g := fixture(t, []string{"S", "N", "M", "T"}, []string{"express"}, []models.Edge{
		edge("S", "M", "express", 10),
		edge("S", "N", "express", 1),
		edge("N", "M", "express", 1),
		edge("M", "T", "express", 1),
	})

	res := LeastInterchangePath(g, "S", "T")
	if res == nil {
		t.Fatal("expected a path")
	}
	if got := res.Stations(); !reflect.DeepEqual(got, []string{"S", "M", "T"}) {
		t.Errorf("expected [S M T], got %v", got)
	}
	if res.TotalDistance != 11 || res.Interchanges != 0 {
		t.Errorf("expected 11m and 0 interchanges, got %dm and %d", res.TotalDistance, res.Interchanges)
	}

	shortest := ShortestPath(g, "S", "T")
	if shortest.TotalDistance != 3 {
		t.Errorf("expected shortest distance 3, got %d", shortest.TotalDistance)
	}
}

func TestLeastInterchangeSameStation(t *testing.T) {
	res := LeastInterchangePath(singleLine(t), "P", "P")
	if res == nil {
		t.Fatal("expected a path")
	}
	if len(res.Path) != 1 || res.TotalDistance != 0 || res.Interchanges != 0 {
		t.Errorf("expected a single zero-cost hop, got %+v", res)
	}
}

func TestLeastInterchangeDisconnected(t *testing.T) {
	g := fixture(t, []string{"A", "B", "C"}, []string{"red"}, []models.Edge{
		edge("A", "B", "red", 100),
	})
	if res := LeastInterchangePath(g, "A", "C"); res != nil {
		t.Errorf("expected no path, got %+v", res)
	}
}

func TestLeastInterchangeReportedValuesMatchWalk(t *testing.T) {
	g := fixture(t, []string{"A", "B", "C", "D", "E"}, []string{"red", "blue", "green"}, []models.Edge{
		edge("A", "B", "red", 400),
		edge("B", "C", "red", 400),
		edge("C", "E", "blue", 900),
		edge("B", "D", "green", 100),
		edge("D", "E", "green", 100),
		edge("A", "D", "blue", 2000),
	})

	res := LeastInterchangePath(g, "A", "E")
	if res == nil {
		t.Fatal("expected a path")
	}
	if got := countInterchanges(res); got != res.Interchanges {
		t.Errorf("reported %d interchanges, hops show %d", res.Interchanges, got)
	}
	if got := walkDistance(g, res); got != res.TotalDistance {
		t.Errorf("reported %dm, hops sum to %dm", res.TotalDistance, got)
	}
}

// TestLeastInterchangeOptimalCount checks the interchange count against an
// exhaustive relaxation over (station, line) states on random graphs.
func TestLeastInterchangeOptimalCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lines := []string{"red", "blue", "green", "violet"}

	for round := 0; round < 25; round++ {
		n := 5 + rng.Intn(5)
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("S%d", i)
		}
		var edges []models.Edge
		for i := 0; i < n*2; i++ {
			edges = append(edges, edge(names[rng.Intn(n)], names[rng.Intn(n)], lines[rng.Intn(len(lines))], 1+rng.Intn(1000)))
		}
		g := fixture(t, names, lines, edges)

		for _, from := range names {
			for _, to := range names {
				want, reachable := minInterchanges(g, from, to)
				res := LeastInterchangePath(g, from, to)
				if !reachable {
					if res != nil {
						t.Fatalf("round %d: %s->%s expected no path", round, from, to)
					}
					continue
				}
				if res == nil {
					t.Fatalf("round %d: %s->%s expected a path", round, from, to)
				}
				if res.Interchanges != want {
					t.Fatalf("round %d: %s->%s expected %d interchanges, got %d", round, from, to, want, res.Interchanges)
				}
				if short := ShortestPath(g, from, to); short.Interchanges < res.Interchanges {
					t.Fatalf("round %d: shortest path has fewer interchanges (%d < %d)", round, short.Interchanges, res.Interchanges)
				}
			}
		}
	}
}

func countInterchanges(res *PathResult) int {
	count := 0
	for i := 2; i < len(res.Path); i++ {
		if res.Path[i].LineID != res.Path[i-1].LineID {
			count++
		}
	}
	return count
}

func minInterchanges(g *Graph, from, to string) (int, bool) {
	if from == to {
		return 0, true
	}
	cost := map[stateKey]int{}
	for _, nb := range g.Neighbors(from) {
		k := stateKey{nb.StationID, nb.LineID}
		cost[k] = 0
	}
	for changed := true; changed; {
		changed = false
		for k, c := range cost {
			for _, nb := range g.Neighbors(k.stationID) {
				next := c
				if nb.LineID != k.lineID {
					next++
				}
				nk := stateKey{nb.StationID, nb.LineID}
				if old, ok := cost[nk]; !ok || next < old {
					cost[nk] = next
					changed = true
				}
			}
		}
	}

	best, found := 0, false
	for k, c := range cost {
		if k.stationID == to && (!found || c < best) {
			best, found = c, true
		}
	}
	return best, found
}
