package facematch

import (
	"errors"
	"math"
	"sync"
)

// ErrDimensionMismatch is returned when a query descriptor does not have the
// length of the indexed descriptors.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Matcher resolves face descriptors to active roster members.
//
// A stored descriptor is a candidate when its distance to the query is below
// the tolerance. The owner of the closest candidate wins; exact ties keep the
// member seen first in roster order. No candidate means the face is unknown.
type Matcher struct {
	source    IdentitySource
	tolerance float64

	mu         sync.Mutex
	version    uint64
	loaded     bool
	identities []Identity
	index      *Index
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTolerance overrides DefaultTolerance. Non-positive values are ignored.
func WithTolerance(tolerance float64) Option {
	return func(m *Matcher) {
		if tolerance > 0 {
			m.tolerance = tolerance
		}
	}
}

// WithIndex enables the HNSW candidate index. Candidates it returns are
// re-verified with the exact distance, so the index only narrows the search.
func WithIndex() Option {
	return func(m *Matcher) {
		m.index = NewIndex()
	}
}

// NewMatcher creates a matcher over source.
func NewMatcher(source IdentitySource, opts ...Option) *Matcher {
	m := &Matcher{
		source:    source,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tolerance returns the distance threshold in use.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// snapshot returns the current identities, refreshing the cached copy (and
// the index, when enabled) if the source changed since the last call.
func (m *Matcher) snapshot() ([]Identity, *Index) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.source.Version()
	if !m.loaded || v != m.version {
		m.identities = m.source.Identities()
		m.version = v
		m.loaded = true
		if m.index != nil {
			m.index.Build(m.identities)
		}
	}
	return m.identities, m.index
}

// Match returns the best active member for d, or an unknown result.
func (m *Matcher) Match(d Descriptor) Result {
	identities, index := m.snapshot()

	if index != nil {
		if res, ok := m.matchIndexed(d, identities, index); ok {
			return res
		}
	}
	return m.matchExact(d, identities)
}

// MatchAll matches each descriptor independently.
func (m *Matcher) MatchAll(descriptors []Descriptor) []Result {
	results := make([]Result, len(descriptors))
	for i, d := range descriptors {
		results[i] = m.Match(d)
	}
	return results
}

func (m *Matcher) matchExact(d Descriptor, identities []Identity) Result {
	best := -1
	bestDistance := math.Inf(1)
	nearest := math.Inf(1)

	for i := range identities {
		for _, stored := range identities[i].Descriptors {
			dist := EuclideanDistance(d, stored)
			if dist < nearest {
				nearest = dist
			}
			if dist < m.tolerance && dist < bestDistance {
				bestDistance = dist
				best = i
			}
		}
	}

	if best < 0 {
		return unknown(nearest)
	}
	return known(identities[best], bestDistance)
}

// matchIndexed consults the HNSW index. The second return value is false when
// the index cannot answer (empty, dimension mismatch) and the caller should
// fall back to the exact scan.
func (m *Matcher) matchIndexed(d Descriptor, identities []Identity, index *Index) (Result, bool) {
	if len(d) != index.Dims() {
		return Result{}, false
	}
	entries, err := index.Search(d, min(HNSWCandidates, index.Len()))
	if err != nil || len(entries) == 0 {
		return Result{}, false
	}

	best := -1
	bestDistance := math.Inf(1)
	nearest := math.Inf(1)

	for _, e := range entries {
		dist := EuclideanDistance(d, identities[e.identity].Descriptors[e.descriptor])
		if dist < nearest {
			nearest = dist
		}
		if dist >= m.tolerance {
			continue
		}
		if dist < bestDistance || (dist == bestDistance && e.identity < best) {
			bestDistance = dist
			best = e.identity
		}
	}

	if best < 0 {
		return unknown(nearest), true
	}
	return known(identities[best], bestDistance), true
}

func known(id Identity, distance float64) Result {
	return Result{
		Name:     id.Name,
		RollNo:   id.RollNo,
		Distance: distance,
		Known:    true,
	}
}

// unknown reports the nearest rejected distance, or -1 when no stored
// descriptor was comparable with the query.
func unknown(nearest float64) Result {
	if math.IsInf(nearest, 1) {
		nearest = -1
	}
	return Result{
		Name:     UnknownName,
		Distance: nearest,
	}
}
