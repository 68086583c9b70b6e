package semindex

import (
	"context"

	"github.com/dominikbraun/graph"
)

// vertexHash is the identity hash dominikbraun/graph needs for a
// string-keyed graph; mirrors the teacher's VertexHash convention in
// internal/modes/graph.go, specialized to plain string vertices since
// memory_edges stores bare memory IDs rather than a richer vertex type.
func vertexHash(id string) string { return id }

// edgeRow mirrors one memory_edges row.
type edgeRow struct {
	source string
	target string
	weight float64
	reason string
}

// refreshGraphLocked rebuilds the in-memory traversal graph from
// memory_edges when the cached copy has been invalidated by a write.
// Caller must hold idx.mu for writing.
func (idx *Index) refreshGraphLocked(ctx context.Context) error {
	if !idx.edgeDirty && idx.edgeGraph != nil {
		return nil
	}

	rows, err := idx.db.QueryContext(ctx, `SELECT source, target, weight, reason FROM memory_edges`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var edges []edgeRow
	for rows.Next() {
		var e edgeRow
		if err := rows.Scan(&e.source, &e.target, &e.weight, &e.reason); err != nil {
			return err
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	g := graph.New(vertexHash, graph.Directed(), graph.Weighted())
	for _, e := range edges {
		_ = g.AddVertex(e.source)
		_ = g.AddVertex(e.target)
		_ = g.AddEdge(e.source, e.target, graph.EdgeWeight(int(e.weight*1000)))
	}

	idx.edgeGraph = g
	idx.edgeDirty = false
	return nil
}

// neighborScores returns, for each seed ID, its outgoing memory_edges
// neighbors together with the 0.15*weight seed score described in §4.4's
// graph expansion step.
func (idx *Index) neighborScores(ctx context.Context, seeds []string) (map[string]float64, error) {
	idx.mu.Lock()
	err := idx.refreshGraphLocked(ctx)
	g := idx.edgeGraph
	idx.mu.Unlock()
	if err != nil || g == nil {
		return nil, err
	}

	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	scores := map[string]float64{}
	seen := map[string]bool{}
	for _, s := range seeds {
		seen[s] = true
	}

	for _, s := range seeds {
		for target, edge := range adjacency[s] {
			if seen[target] {
				continue
			}
			weight := float64(edge.Properties.Weight) / 1000
			seedScore := 0.15 * weight
			if cur, ok := scores[target]; !ok || seedScore > cur {
				scores[target] = seedScore
			}
		}
	}

	return scores, nil
}
