package multilat

import (
	"fmt"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
	"github.com/qrqiuren/lonepseudoranger/internal/units"
)

// Station is one ground station's contribution to an epoch: its fixed
// position, the slant range resolved from signal timing, and an optional
// per-station delay metric carried through for quality reporting.
type Station struct {
	ID    string
	Pos   geom.Point
	Range float64 // metres, ≥ 0 once resolved
	Delay float64 // seconds of residual station delay, 0 if unknown
}

// ResolveRange converts a (transmit time, receive time) pair into a slant
// range in metres. Returns ErrInvalidTiming when the receive time precedes
// the transmit time. Pure function.
func ResolveRange(t0, t timebase.Timestamp) (float64, error) {
	dt := t.Sub(t0)
	if dt.Negative() {
		return 0, fmt.Errorf("station timing %s before %s: %w", t, t0, ErrInvalidTiming)
	}
	return units.RangeFromFlightSeconds(dt.Seconds()), nil
}

// StationSet is the ordered, epoch-scoped collection of stations feeding
// one solve. Mutation happens only through Add during epoch construction;
// afterwards callers get read-only access by index. Insertion order is
// preserved so combination ids stay stable across runs.
type StationSet struct {
	transmitTime timebase.Timestamp
	stations     []Station
	seen         map[string]struct{}
}

// NewStationSet creates an empty StationSet for an epoch transmitted at t0.
func NewStationSet(t0 timebase.Timestamp) *StationSet {
	return &StationSet{
		transmitTime: t0,
		seen:         make(map[string]struct{}),
	}
}

// TransmitTime returns the epoch's nominal transmission time.
func (s *StationSet) TransmitTime() timebase.Timestamp {
	return s.transmitTime
}

// Add resolves one observation's range and appends the station. Returns
// ErrInvalidTiming for receive times before the transmit time and
// ErrDuplicateStation for a station id already present; in both cases the
// set is left unchanged.
func (s *StationSet) Add(id string, pos geom.Point, receiveTime timebase.Timestamp, delay float64) error {
	r, err := ResolveRange(s.transmitTime, receiveTime)
	if err != nil {
		return fmt.Errorf("station %s: %w", id, err)
	}
	return s.AddResolved(Station{ID: id, Pos: pos, Range: r, Delay: delay})
}

// AddResolved appends a station whose range is already known, validating
// it. Used by Add and by callers that carry ranges directly.
func (s *StationSet) AddResolved(st Station) error {
	if st.Range < 0 {
		return fmt.Errorf("station %s: negative range %g: %w", st.ID, st.Range, ErrInvalidTiming)
	}
	if _, ok := s.seen[st.ID]; ok {
		return fmt.Errorf("station %s: %w", st.ID, ErrDuplicateStation)
	}
	s.seen[st.ID] = struct{}{}
	s.stations = append(s.stations, st)
	return nil
}

// Len returns the number of stations in the set.
func (s *StationSet) Len() int {
	return len(s.stations)
}

// Station returns the station at index i in insertion order.
func (s *StationSet) Station(i int) Station {
	return s.stations[i]
}

// Stations returns a copy of the stations in insertion order.
func (s *StationSet) Stations() []Station {
	out := make([]Station, len(s.stations))
	copy(out, s.stations)
	return out
}
