package multilat

import (
	"errors"
	"fmt"
)

// ErrInvalidTiming marks an observation whose receive time precedes the
// nominal transmit time: the resolved range would be negative. The
// observation is excluded from the epoch rather than clamped to zero, since
// a fabricated zero-range station would bias every solve it takes part in.
var ErrInvalidTiming = errors.New("receive time precedes transmit time")

// ErrDuplicateStation marks a second observation for a station id that is
// already part of the epoch's StationSet.
var ErrDuplicateStation = errors.New("station already observed in this epoch")

// ErrStoreSealed marks an append to a CandidateStore after the epoch's
// solving phase has ended.
var ErrStoreSealed = errors.New("candidate store is sealed")

// InsufficientStationsError aborts an epoch that cannot form a single
// solvable combination.
type InsufficientStationsError struct {
	Have int
	Need int
}

func (e *InsufficientStationsError) Error() string {
	return fmt.Sprintf("insufficient stations: have %d, need %d", e.Have, e.Need)
}

// DegenerateGeometryError marks one combination whose coefficient matrix is
// singular or near-singular (stations nearly coplanar or collinear relative
// to the emitter). Scoped to the combination: the epoch continues.
type DegenerateGeometryError struct {
	CombinationID int
	Condition     float64
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry in combination %d (condition %.3g)", e.CombinationID, e.Condition)
}
