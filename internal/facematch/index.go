package facematch

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters for small face-descriptor graphs (128-dim dlib style encodings).
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWCandidates is the number of approximate neighbors requested per
	// query. Each one is re-verified with the exact distance.
	HNSWCandidates = 16
)

// ErrIndexEmpty is returned when searching an index that holds no descriptors.
var ErrIndexEmpty = errors.New("descriptor index is empty")

// indexEntry locates an indexed descriptor inside the identity snapshot.
type indexEntry struct {
	identity   int
	descriptor int
}

// Index wraps an HNSW graph over the descriptors of all active identities.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int]
	entries []indexEntry
	dims    int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Build replaces the index contents with the descriptors of identities.
// Descriptors whose length differs from the first indexed descriptor are skipped.
func (x *Index) Build(identities []Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.graph = nil
	x.entries = nil
	x.dims = 0

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance

	for i, id := range identities {
		for j, d := range id.Descriptors {
			if len(d) == 0 {
				continue
			}
			if x.dims == 0 {
				x.dims = len(d)
			}
			if len(d) != x.dims {
				continue
			}
			key := len(x.entries)
			x.entries = append(x.entries, indexEntry{identity: i, descriptor: j})
			g.Add(hnsw.MakeNode(key, []float32(d)))
		}
	}

	if len(x.entries) > 0 {
		x.graph = g
	}
}

// Len returns the number of indexed descriptors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dims returns the descriptor length accepted by the index, 0 when empty.
func (x *Index) Dims() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dims
}

// Search returns the positions (identity, descriptor) of up to k approximate
// nearest neighbors of query.
func (x *Index) Search(query Descriptor, k int) ([]indexEntry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, ErrIndexEmpty
	}
	if len(query) != x.dims {
		return nil, ErrDimensionMismatch
	}

	nodes := x.graph.Search([]float32(query), k)
	out := make([]indexEntry, 0, len(nodes))
	for _, n := range nodes {
		if n.Key < 0 || n.Key >= len(x.entries) {
			continue
		}
		out = append(out, x.entries[n.Key])
	}
	return out, nil
}
