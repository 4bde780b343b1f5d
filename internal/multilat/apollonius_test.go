package multilat

import (
	"errors"
	"testing"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

// setWithEmitter builds a StationSet whose ranges are the exact distances
// from each station position to the synthetic emitter.
func setWithEmitter(t *testing.T, emitter geom.Point, positions []geom.Point) *StationSet {
	t.Helper()
	set := NewStationSet(timebase.New(0, 0))
	for i, pos := range positions {
		st := Station{
			ID:    string(rune('a' + i)),
			Pos:   pos,
			Range: geom.Distance(emitter, pos),
		}
		if err := set.AddResolved(st); err != nil {
			t.Fatal(err)
		}
	}
	return set
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func TestSolveCombinationRoundTrip(t *testing.T) {
	emitter := geom.Point{X: 312.5, Y: -4780.0, Z: 9150.25}
	set := setWithEmitter(t, emitter, []geom.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10000, Y: 0, Z: 0},
		{X: 0, Y: 10000, Z: 0},
		{X: 0, Y: 0, Z: 10000},
	})

	cand, err := SolveCombination(set, Combination{ID: 7, Indices: allIndices(4)}, 0)
	if err != nil {
		t.Fatalf("SolveCombination: %v", err)
	}
	if cand.CombinationID != 7 {
		t.Errorf("CombinationID = %d, want 7", cand.CombinationID)
	}

	// Recovery within 1e-6 relative tolerance.
	if d := geom.Distance(cand.Pos, emitter); d > 1e-6*emitter.Norm() {
		t.Errorf("recovered %+v, want %+v (off by %g m)", cand.Pos, emitter, d)
	}
	if cand.Residual > 1e-6 {
		t.Errorf("residual = %g for exact ranges, want ~0", cand.Residual)
	}
}

func TestSolveCombinationOverdetermined(t *testing.T) {
	emitter := geom.Point{X: -1200, Y: 800, Z: 15000}
	set := setWithEmitter(t, emitter, []geom.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 20000, Y: 0, Z: 0},
		{X: 0, Y: 20000, Z: 0},
		{X: 0, Y: 0, Z: 20000},
		{X: 15000, Y: 15000, Z: 100},
		{X: -8000, Y: 3000, Z: 5000},
	})

	cand, err := SolveCombination(set, Combination{ID: 0, Indices: allIndices(6)}, 0)
	if err != nil {
		t.Fatalf("SolveCombination k=6: %v", err)
	}
	if d := geom.Distance(cand.Pos, emitter); d > 1e-5 {
		t.Errorf("least-squares recovery off by %g m", d)
	}
	// Residual stays near zero for consistent ranges even when k > 4.
	if cand.Residual > 1e-5 {
		t.Errorf("residual = %g, want ~0", cand.Residual)
	}
}

func TestSolveCombinationCollinearDegenerate(t *testing.T) {
	emitter := geom.Point{X: 500, Y: 500, Z: 500}
	set := setWithEmitter(t, emitter, []geom.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 1000, Y: 0, Z: 0},
		{X: 2000, Y: 0, Z: 0},
		{X: 3000, Y: 0, Z: 0},
	})

	_, err := SolveCombination(set, Combination{ID: 3, Indices: allIndices(4)}, 0)
	var degErr *DegenerateGeometryError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateGeometryError for collinear stations, got %v", err)
	}
	if degErr.CombinationID != 3 {
		t.Errorf("CombinationID = %d, want 3", degErr.CombinationID)
	}
}

func TestSolveCombinationCoplanarDegenerate(t *testing.T) {
	// All stations in the z=0 plane: the z column of the coefficient
	// matrix vanishes and the solve cannot pin down altitude.
	emitter := geom.Point{X: 100, Y: 100, Z: 5000}
	set := setWithEmitter(t, emitter, []geom.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 1000, Y: 0, Z: 0},
		{X: 0, Y: 1000, Z: 0},
		{X: 1000, Y: 1000, Z: 0},
	})

	_, err := SolveCombination(set, Combination{ID: 0, Indices: allIndices(4)}, 0)
	var degErr *DegenerateGeometryError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateGeometryError for coplanar stations, got %v", err)
	}
}

func TestSolveCombinationNearDegenerateGuard(t *testing.T) {
	// Barely non-coplanar: one station lifted a hair off the plane. A
	// strict condition ceiling must refuse the solve.
	emitter := geom.Point{X: 100, Y: 100, Z: 5000}
	set := setWithEmitter(t, emitter, []geom.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 1000, Y: 0, Z: 0},
		{X: 0, Y: 1000, Z: 0},
		{X: 1000, Y: 1000, Z: 1e-6},
	})

	_, err := SolveCombination(set, Combination{ID: 0, Indices: allIndices(4)}, 1e6)
	var degErr *DegenerateGeometryError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateGeometryError under tight condition ceiling, got %v", err)
	}
}
