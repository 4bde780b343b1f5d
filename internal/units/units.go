// Package units provides shared physical constants and range/time
// conversions. All ranging math goes through these helpers so the speed of
// light is declared exactly once for the whole process.
package units

// SpeedOfLight is the propagation speed of the signal in metres per second
// (exact, by SI definition).
const SpeedOfLight = 299792458.0

// PicosPerSecond is the number of picoseconds in one second.
const PicosPerSecond = 1e12

// MetresPerNanosecond is how far the signal travels in one nanosecond.
// Roughly 0.3 m; 1 m of range corresponds to about 3.3 ns of flight time.
const MetresPerNanosecond = SpeedOfLight * 1e-9

// RangeFromFlightSeconds converts a signal flight time in seconds into a
// slant range in metres.
func RangeFromFlightSeconds(seconds float64) float64 {
	return seconds * SpeedOfLight
}

// FlightSecondsFromRange converts a slant range in metres into the signal
// flight time in seconds.
func FlightSecondsFromRange(metres float64) float64 {
	return metres / SpeedOfLight
}
