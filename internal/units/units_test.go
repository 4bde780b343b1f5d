package units

import (
	"math"
	"testing"
)

func TestRangeFromFlightSeconds(t *testing.T) {
	// One microsecond of flight is just under 300 m.
	got := RangeFromFlightSeconds(1e-6)
	want := 299.792458
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("RangeFromFlightSeconds(1e-6) = %v, want %v", got, want)
	}
}

func TestRangeFlightRoundTrip(t *testing.T) {
	for _, metres := range []float64{0, 1, 1000, 2.5e7} {
		back := RangeFromFlightSeconds(FlightSecondsFromRange(metres))
		if math.Abs(back-metres) > 1e-6 {
			t.Errorf("round trip for %v m gave %v", metres, back)
		}
	}
}
