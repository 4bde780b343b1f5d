package multilat

import (
	"sort"
	"sync"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
)

// PositionCandidate is one solved position root, tagged with the integer
// id of the combination that produced it and the RMS sphere-equation
// residual used for consensus tie-breaking. Immutable once created.
type PositionCandidate struct {
	Pos           geom.Point
	CombinationID int
	Residual      float64
}

// CandidateStore accumulates every candidate produced across one epoch's
// combinations. It deliberately does not deduplicate: several combinations
// converging on nearly the same point is the redundancy signal consensus
// feeds on. Appends may come from parallel solver workers; once Seal is
// called the store is read-only.
type CandidateStore struct {
	mu         sync.Mutex
	sealed     bool
	candidates []PositionCandidate
}

// NewCandidateStore creates an empty store for one epoch.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{}
}

// Add appends a candidate. Returns ErrStoreSealed after Seal.
func (cs *CandidateStore) Add(c PositionCandidate) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.sealed {
		return ErrStoreSealed
	}
	cs.candidates = append(cs.candidates, c)
	return nil
}

// Seal ends the epoch's solving phase and puts the store into canonical
// combination-id order, so every downstream traversal (and its floating
// point summation order) is identical no matter how parallel workers
// interleaved their appends. Further Adds fail.
func (cs *CandidateStore) Seal() {
	cs.mu.Lock()
	cs.sealed = true
	sort.Slice(cs.candidates, func(i, j int) bool {
		return cs.candidates[i].CombinationID < cs.candidates[j].CombinationID
	})
	cs.mu.Unlock()
}

// Len returns the number of stored candidates.
func (cs *CandidateStore) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.candidates)
}

// At returns the candidate at index i.
func (cs *CandidateStore) At(i int) PositionCandidate {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.candidates[i]
}

// All returns a copy of the stored candidates.
func (cs *CandidateStore) All() []PositionCandidate {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]PositionCandidate, len(cs.candidates))
	copy(out, cs.candidates)
	return out
}

// Distance returns the Euclidean distance between candidates i and j.
func (cs *CandidateStore) Distance(i, j int) float64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return geom.Distance(cs.candidates[i].Pos, cs.candidates[j].Pos)
}

// Centroid returns the unweighted centroid of the candidates at the given
// indices. An empty index list yields the zero point.
func (cs *CandidateStore) Centroid(indices []int) geom.Point {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	points := make([]geom.Point, 0, len(indices))
	for _, i := range indices {
		points = append(points, cs.candidates[i].Pos)
	}
	return geom.Centroid(points)
}
