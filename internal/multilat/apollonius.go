package multilat

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
)

// DefaultMaxConditionNumber is the condition-number ceiling beyond which a
// combination's coefficient matrix is treated as degenerate.
const DefaultMaxConditionNumber = 1e10

// SolveCombination solves the sphere-intersection (Apollonius) system for
// one combination of k ≥ 4 stations.
//
// Each station i defines a sphere |p − s_i| = r_i. Subtracting the first
// station's equation from each of the others cancels the quadratic terms
// and leaves k−1 linear equations in the three unknown coordinates:
//
//	2(s_i − s_0)·p = (r_0² − r_i²) + (|s_i|² − |s_0|²)
//
// With k = 4 the system is exactly determined and a single stable solve
// yields one candidate. With k > 4 the system is overdetermined and solved
// in the least-squares sense; the candidate then carries the RMS
// sphere-equation residual for consensus scoring.
//
// Returns DegenerateGeometryError when the coefficient matrix is singular
// or its condition number exceeds maxCond (stations nearly coplanar or
// collinear). maxCond ≤ 0 selects DefaultMaxConditionNumber.
func SolveCombination(set *StationSet, comb Combination, maxCond float64) (PositionCandidate, error) {
	if maxCond <= 0 {
		maxCond = DefaultMaxConditionNumber
	}

	k := len(comb.Indices)
	ref := set.Station(comb.Indices[0])
	refSq := ref.Pos.X*ref.Pos.X + ref.Pos.Y*ref.Pos.Y + ref.Pos.Z*ref.Pos.Z

	a := mat.NewDense(k-1, 3, nil)
	b := mat.NewVecDense(k-1, nil)
	for row, idx := range comb.Indices[1:] {
		st := set.Station(idx)
		a.Set(row, 0, 2*(st.Pos.X-ref.Pos.X))
		a.Set(row, 1, 2*(st.Pos.Y-ref.Pos.Y))
		a.Set(row, 2, 2*(st.Pos.Z-ref.Pos.Z))
		stSq := st.Pos.X*st.Pos.X + st.Pos.Y*st.Pos.Y + st.Pos.Z*st.Pos.Z
		b.SetVec(row, (ref.Range*ref.Range-st.Range*st.Range)+(stSq-refSq))
	}

	// Guard on the singular values before solving: a near-singular system
	// here means the station geometry cannot pin down the position, not a
	// numerical accident worth pushing through.
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return PositionCandidate{}, &DegenerateGeometryError{CombinationID: comb.ID, Condition: math.Inf(1)}
	}
	vals := svd.Values(nil)
	smin := vals[len(vals)-1]
	if smin <= 0 {
		return PositionCandidate{}, &DegenerateGeometryError{CombinationID: comb.ID, Condition: math.Inf(1)}
	}
	cond := vals[0] / smin
	if cond > maxCond {
		return PositionCandidate{}, &DegenerateGeometryError{CombinationID: comb.ID, Condition: cond}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return PositionCandidate{}, &DegenerateGeometryError{CombinationID: comb.ID, Condition: cond}
	}

	pos := geom.Point{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
	return PositionCandidate{
		Pos:           pos,
		CombinationID: comb.ID,
		Residual:      sphereResidual(set, comb, pos),
	}, nil
}

// sphereResidual computes the root-mean-square error of the candidate
// position against the combination's sphere equations. Near zero for an
// exactly determined solve; meaningful for overdetermined ones.
func sphereResidual(set *StationSet, comb Combination, pos geom.Point) float64 {
	var sumSq float64
	for _, idx := range comb.Indices {
		st := set.Station(idx)
		diff := geom.Distance(pos, st.Pos) - st.Range
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(comb.Indices)))
}
