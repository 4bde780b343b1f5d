package multilat

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

func consensusFixture(t *testing.T) (Epoch, *StationSet, []Combination) {
	t.Helper()
	epoch := Epoch{EmitterID: "sat-42", TransmitTime: timebase.New(1700000000, 0)}
	set := NewStationSet(epoch.TransmitTime)
	delays := []float64{0.010, 0.020, 0.030, 0.040, 0.050, 0.060, 0.070}
	for i, d := range delays {
		st := Station{ID: "gs-" + string(rune('0'+i)), Pos: geom.Point{X: float64(i) * 1000}, Range: 5000, Delay: d}
		if err := set.AddResolved(st); err != nil {
			t.Fatal(err)
		}
	}
	combos := []Combination{
		{ID: 0, Indices: []int{0, 1, 2, 3}},
		{ID: 1, Indices: []int{0, 1, 2, 4}},
		{ID: 2, Indices: []int{0, 1, 3, 4}},
		{ID: 3, Indices: []int{0, 2, 3, 4}},
		{ID: 4, Indices: []int{1, 2, 3, 4}},
		{ID: 5, Indices: []int{3, 4, 5, 6}},
		{ID: 6, Indices: []int{2, 4, 5, 6}},
	}
	return epoch, set, combos
}

func defaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		ClusterDistanceThreshold: 100,
		MinClusterSize:           3,
		ClusterSpreadTolerance:   50,
	}
}

func TestConsensusSelectsLargestCluster(t *testing.T) {
	epoch, set, combos := consensusFixture(t)

	store := NewCandidateStore()
	// Five candidates tightly around one point, two far outliers.
	tight := geom.Point{X: 1000, Y: 2000, Z: 3000}
	offsets := []geom.Point{
		{X: 0.1}, {Y: -0.2}, {Z: 0.15}, {X: -0.05, Y: 0.05}, {Z: -0.1},
	}
	for i, off := range offsets {
		store.Add(PositionCandidate{Pos: tight.Add(off), CombinationID: i, Residual: 0.01})
	}
	store.Add(PositionCandidate{Pos: geom.Point{X: 90000}, CombinationID: 5, Residual: 5})
	store.Add(PositionCandidate{Pos: geom.Point{X: -70000, Y: 40000}, CombinationID: 6, Residual: 8})
	store.Seal()

	est := EstimateConsensus(epoch, set, combos, store, defaultConsensusConfig())

	if est.Confidence != ConfidenceOK {
		t.Errorf("Confidence = %s, want ok", est.Confidence)
	}
	if est.WinningClusterSize != 5 {
		t.Errorf("WinningClusterSize = %d, want 5", est.WinningClusterSize)
	}
	if d := geom.Distance(est.Position, tight); d > 0.2 {
		t.Errorf("consensus position off by %g m", d)
	}

	// Contributing stations come from the winning cluster's combinations
	// only: union of combos 0..4 = stations 0..4, never gs-5/gs-6.
	want := []string{"gs-0", "gs-1", "gs-2", "gs-3", "gs-4"}
	if diff := cmp.Diff(want, est.ContributingStations); diff != "" {
		t.Errorf("contributing stations (-want +got):\n%s", diff)
	}

	// Delay stats over stations 0..4: 0.010 .. 0.050.
	if math.Abs(est.Delays.Min-0.010) > 1e-12 || math.Abs(est.Delays.Max-0.050) > 1e-12 {
		t.Errorf("delay min/max = %v/%v, want 0.010/0.050", est.Delays.Min, est.Delays.Max)
	}
	if math.Abs(est.Delays.Mean-0.030) > 1e-12 {
		t.Errorf("delay mean = %v, want 0.030", est.Delays.Mean)
	}
}

func TestConsensusLowConfidenceSmallCluster(t *testing.T) {
	epoch, set, combos := consensusFixture(t)

	store := NewCandidateStore()
	store.Add(PositionCandidate{Pos: geom.Point{X: 1000}, CombinationID: 0})
	store.Add(PositionCandidate{Pos: geom.Point{X: 1001}, CombinationID: 1})
	store.Seal()

	est := EstimateConsensus(epoch, set, combos, store, defaultConsensusConfig())
	if est.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %s, want low_confidence for 2-member winner", est.Confidence)
	}
	// Best-effort centroid is still returned.
	if math.Abs(est.Position.X-1000.5) > 1e-9 {
		t.Errorf("Position.X = %v, want 1000.5", est.Position.X)
	}
}

func TestConsensusLowConfidenceWideSpread(t *testing.T) {
	epoch, set, combos := consensusFixture(t)

	store := NewCandidateStore()
	// Three members, chained within the 100 m linkage threshold but spread
	// beyond the 50 m tolerance.
	store.Add(PositionCandidate{Pos: geom.Point{X: 0}, CombinationID: 0})
	store.Add(PositionCandidate{Pos: geom.Point{X: 90}, CombinationID: 1})
	store.Add(PositionCandidate{Pos: geom.Point{X: 180}, CombinationID: 2})
	store.Seal()

	est := EstimateConsensus(epoch, set, combos, store, defaultConsensusConfig())
	if est.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %s, want low_confidence for spread %g", est.Confidence, est.ClusterSpread)
	}
	if est.WinningClusterSize != 3 {
		t.Errorf("WinningClusterSize = %d, want 3 (single-linkage chain)", est.WinningClusterSize)
	}
}

func TestConsensusTieBreakByResidual(t *testing.T) {
	epoch, set, combos := consensusFixture(t)

	store := NewCandidateStore()
	// Two 2-member clusters; the second has the smaller mean residual.
	store.Add(PositionCandidate{Pos: geom.Point{X: 0}, CombinationID: 0, Residual: 10})
	store.Add(PositionCandidate{Pos: geom.Point{X: 1}, CombinationID: 1, Residual: 12})
	store.Add(PositionCandidate{Pos: geom.Point{X: 50000}, CombinationID: 2, Residual: 0.5})
	store.Add(PositionCandidate{Pos: geom.Point{X: 50001}, CombinationID: 3, Residual: 0.7})
	store.Seal()

	est := EstimateConsensus(epoch, set, combos, store, defaultConsensusConfig())
	if math.Abs(est.Position.X-50000.5) > 1e-9 {
		t.Errorf("tie should break to the low-residual cluster, got X=%v", est.Position.X)
	}
}

func TestConsensusEmptyStore(t *testing.T) {
	epoch, set, combos := consensusFixture(t)
	store := NewCandidateStore()
	store.Seal()

	est := EstimateConsensus(epoch, set, combos, store, defaultConsensusConfig())
	if est.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %s, want low_confidence for empty store", est.Confidence)
	}
	if est.CandidateCount != 0 || est.WinningClusterSize != 0 {
		t.Errorf("counts = %d/%d, want 0/0", est.CandidateCount, est.WinningClusterSize)
	}
}
