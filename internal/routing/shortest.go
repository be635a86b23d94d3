package routing

import (
	"container/heap"
	"math"
)

const infinity = math.MaxInt

// searchNode is the per-query state of one station.
type searchNode struct {
	distance  int
	previous  string
	lineID    string
	finalized bool
}

// ShortestPath returns the minimum total-distance route between two station
// ids, or nil when the destination cannot be reached.
func ShortestPath(g *Graph, fromID, toID string) *PathResult {
	if !g.HasStation(fromID) || !g.HasStation(toID) {
		return nil
	}

	nodes := make(map[string]*searchNode, g.Len())
	node := func(id string) *searchNode {
		n, ok := nodes[id]
		if !ok {
			n = &searchNode{distance: infinity}
			nodes[id] = n
		}
		return n
	}

	node(fromID).distance = 0

	pq := make(priorityQueue, 0, g.Len())
	heap.Init(&pq)
	seq := 0
	heap.Push(&pq, &item{stationID: fromID, priority: 0, seq: seq})

	for pq.Len() > 0 {
		current := heap.Pop(&pq).(*item)
		u := node(current.stationID)
		if u.finalized || current.priority > u.distance {
			continue
		}
		u.finalized = true

		if current.stationID == toID {
			return reconstruct(g, nodes, toID)
		}

		for _, nb := range g.Neighbors(current.stationID) {
			v := node(nb.StationID)
			if v.finalized {
				continue
			}
			alt := u.distance + nb.Distance
			if alt < v.distance {
				v.distance = alt
				v.previous = current.stationID
				v.lineID = nb.LineID
				seq++
				heap.Push(&pq, &item{stationID: nb.StationID, priority: alt, seq: seq})
			}
		}
	}

	return nil
}

// reconstruct walks the predecessor chain back from the destination.
func reconstruct(g *Graph, nodes map[string]*searchNode, toID string) *PathResult {
	var hops []Hop
	interchanges := 0

	for id := toID; id != ""; {
		n := nodes[id]
		hops = append(hops, newHop(g, id, n.lineID))
		if n.previous != "" {
			prev := nodes[n.previous]
			if prev.lineID != "" && prev.lineID != n.lineID {
				interchanges++
			}
		}
		id = n.previous
	}

	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}

	return &PathResult{
		Path:          hops,
		TotalDistance: nodes[toID].distance,
		Interchanges:  interchanges,
	}
}
