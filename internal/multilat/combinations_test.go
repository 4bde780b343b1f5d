package multilat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

func setOfSize(t *testing.T, n int) *StationSet {
	t.Helper()
	set := NewStationSet(timebase.New(0, 0))
	for i := 0; i < n; i++ {
		if err := set.AddResolved(Station{ID: string(rune('a' + i)), Pos: geom.Point{X: float64(i)}, Range: 1}); err != nil {
			t.Fatal(err)
		}
	}
	return set
}

func TestCombinationsCount(t *testing.T) {
	// C(6, 4) = 15.
	combos, err := setOfSize(t, 6).Combinations(4)
	if err != nil {
		t.Fatalf("Combinations: %v", err)
	}
	if len(combos) != 15 {
		t.Fatalf("got %d combinations, want 15", len(combos))
	}

	// Ids are the ranks 0..14, each exactly once.
	seen := make(map[int]bool)
	for _, c := range combos {
		if seen[c.ID] {
			t.Errorf("duplicate combination id %d", c.ID)
		}
		seen[c.ID] = true
		if c.ID < 0 || c.ID >= 15 {
			t.Errorf("combination id %d out of range", c.ID)
		}
		if len(c.Indices) != 4 {
			t.Errorf("combination %d has %d indices, want 4", c.ID, len(c.Indices))
		}
	}
}

func TestCombinationsLexicographic(t *testing.T) {
	combos, err := setOfSize(t, 5).Combinations(4)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{
		{0, 1, 2, 3},
		{0, 1, 2, 4},
		{0, 1, 3, 4},
		{0, 2, 3, 4},
		{1, 2, 3, 4},
	}
	for i, c := range combos {
		if diff := cmp.Diff(want[i], c.Indices); diff != "" {
			t.Errorf("combination %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestCombinationsDeterministic(t *testing.T) {
	first, err := setOfSize(t, 7).Combinations(4)
	if err != nil {
		t.Fatal(err)
	}
	second, err := setOfSize(t, 7).Combinations(4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-enumeration differs (-first +second):\n%s", diff)
	}
}

func TestCombinationsInsufficientStations(t *testing.T) {
	_, err := setOfSize(t, 3).Combinations(4)
	var insufficient *InsufficientStationsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStationsError, got %v", err)
	}
	if insufficient.Have != 3 || insufficient.Need != 4 {
		t.Errorf("got Have=%d Need=%d, want 3/4", insufficient.Have, insufficient.Need)
	}
}

func TestCombinationsExactGroupSize(t *testing.T) {
	combos, err := setOfSize(t, 4).Combinations(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(combos) != 1 {
		t.Errorf("got %d combinations, want 1", len(combos))
	}
}

func TestBinomial(t *testing.T) {
	cases := []struct{ n, k, want int }{
		{6, 4, 15}, {4, 4, 1}, {10, 4, 210}, {5, 1, 5},
	}
	for _, c := range cases {
		if got := binomial(c.n, c.k); got != c.want {
			t.Errorf("binomial(%d,%d) = %d, want %d", c.n, c.k, got, c.want)
		}
	}
}
