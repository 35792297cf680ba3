package ledger

import (
	"context"
	"sort"
	"sync"
)

// EdgeSet is an in-memory EdgeStore backed by a map. It serves the
// consolidation unit tests and history replay; the SQLite store is the
// durable implementation.
type EdgeSet struct {
	mu    sync.Mutex
	edges map[pairKey]Edge
}

type pairKey struct {
	groupID string
	lo, hi  string
}

func newPairKey(groupID, a, b string) pairKey {
	lo, hi := NormalizePair(a, b)
	return pairKey{groupID: groupID, lo: lo, hi: hi}
}

// NewEdgeSet returns an empty in-memory edge store.
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{edges: make(map[pairKey]Edge)}
}

var _ EdgeStore = (*EdgeSet)(nil)

func (s *EdgeSet) GetEdge(_ context.Context, groupID, memberA, memberB string) (*Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edge, ok := s.edges[newPairKey(groupID, memberA, memberB)]
	if !ok {
		return nil, nil
	}
	return &edge, nil
}

func (s *EdgeSet) PutEdge(_ context.Context, edge Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[newPairKey(edge.GroupID, edge.LenderID, edge.BorrowerID)] = edge
	return nil
}

func (s *EdgeSet) DeleteEdge(_ context.Context, groupID, memberA, memberB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, newPairKey(groupID, memberA, memberB))
	return nil
}

// Snapshot returns every stored edge, ordered by group and pair so two
// snapshots are directly comparable.
func (s *EdgeSet) Snapshot() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		alo, ahi := NormalizePair(a.LenderID, a.BorrowerID)
		blo, bhi := NormalizePair(b.LenderID, b.BorrowerID)
		if alo != blo {
			return alo < blo
		}
		return ahi < bhi
	})
	return out
}

// Len reports the number of stored edges.
func (s *EdgeSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}
