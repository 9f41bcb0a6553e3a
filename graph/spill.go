// Spill-elevation propagation: starting from the raster-boundary sentinel,
// propagate the maximum elevation seen along a path to every region label.
// This is a minimum bottleneck / widest-path solve, not a sum-of-weights
// shortest path, so it runs its own priority-queue search over the edge
// graph rather than reusing a generic shortest-path routine.
package graph

import "github.com/jblindsay/hydroflow/structures"

// SpillElevations runs the minimax propagation over eg, starting at
// BoundaryLabel, and returns spill(label) for every label reachable from the
// boundary. A label absent from the result is not connected to the boundary
// at all (an interior endorheic region with no edge graph path out, which
// the inter-tile edge construction should prevent but is reported rather
// than assumed away).
func SpillElevations(eg *EdgeGraph) (map[int64]int64, error) {
	eg.EnsureVertex(BoundaryLabel)

	dist := map[int64]int64{BoundaryLabel: minInt64()}
	visited := map[int64]bool{}
	pq := structures.NewPQueue[int64]()
	pq.Push(float64(dist[BoundaryLabel]), BoundaryLabel)

	for !pq.Empty() {
		label, ok := pq.Pop()
		if !ok {
			break
		}
		if visited[label] {
			continue
		}
		visited[label] = true

		neighbors, err := eg.Neighbors(label)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb.Label] {
				continue
			}
			// The cost of reaching nb via label is the larger of "the
			// worst step already taken" and "this edge's threshold":
			// the classic minimax-path relaxation.
			candidate := nb.Weight
			if dist[label] > candidate {
				candidate = dist[label]
			}
			if prev, seen := dist[nb.Label]; !seen || candidate < prev {
				dist[nb.Label] = candidate
				pq.Push(float64(candidate), nb.Label)
			}
		}
	}

	delete(dist, BoundaryLabel)
	return dist, nil
}

func minInt64() int64 {
	return -1 << 63
}
