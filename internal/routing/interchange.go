package routing

// state is one explored (station, arriving line) pair. parent indexes the
// state it was expanded from, -1 for the origin.
type state struct {
	stationID    string
	lineID       string
	interchanges int
	distance     int
	parent       int
}

type stateKey struct {
	stationID string
	lineID    string
}

// LeastInterchangePath returns the route with the fewest line changes,
// preferring the shorter one among equal counts, or nil when the destination
// cannot be reached.
//
// The frontier is FIFO. A successor is dropped when its (station, line) pair
// was already recorded with no more interchanges; distance does not take part
// in that check, so the route kept for a pair is the first one found with the
// lowest count.
func LeastInterchangePath(g *Graph, fromID, toID string) *PathResult {
	if !g.HasStation(fromID) || !g.HasStation(toID) {
		return nil
	}

	states := []state{{stationID: fromID, parent: -1}}
	queue := []int{0}
	visited := make(map[stateKey]int)
	best := -1

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		cur := states[idx]

		if cur.stationID == toID {
			if best < 0 || better(cur, states[best]) {
				best = idx
			}
			continue
		}

		for _, nb := range g.Neighbors(cur.stationID) {
			next := cur.interchanges
			if cur.lineID != "" && nb.LineID != cur.lineID {
				next++
			}

			key := stateKey{stationID: nb.StationID, lineID: nb.LineID}
			if recorded, ok := visited[key]; ok && recorded <= next {
				continue
			}
			visited[key] = next

			states = append(states, state{
				stationID:    nb.StationID,
				lineID:       nb.LineID,
				interchanges: next,
				distance:     cur.distance + nb.Distance,
				parent:       idx,
			})
			queue = append(queue, len(states)-1)
		}
	}

	if best < 0 {
		return nil
	}
	return unwind(g, states, best)
}

func better(a, b state) bool {
	if a.interchanges != b.interchanges {
		return a.interchanges < b.interchanges
	}
	return a.distance < b.distance
}

func unwind(g *Graph, states []state, idx int) *PathResult {
	end := states[idx]

	var hops []Hop
	for i := idx; i >= 0; i = states[i].parent {
		hops = append(hops, newHop(g, states[i].stationID, states[i].lineID))
	}
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}

	return &PathResult{
		Path:          hops,
		TotalDistance: end.distance,
		Interchanges:  end.interchanges,
	}
}
