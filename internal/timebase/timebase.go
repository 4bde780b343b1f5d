// Package timebase provides the high-resolution timestamp used for signal
// timing. Ranging needs to resolve metre-level differences, and 1 m of range
// is about 3.3 ns of flight time, so timestamps are held as integer seconds
// plus integer picoseconds rather than as a float or a time.Time.
package timebase

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PicosPerSecond is the picosecond count of one second.
const PicosPerSecond = int64(1e12)

// Timestamp is an instant expressed as whole seconds since the Unix epoch
// plus a picosecond fraction. The fraction is always in [0, 1e12).
type Timestamp struct {
	sec  int64
	pico int64
}

// New builds a Timestamp from seconds and picoseconds, normalizing the
// fraction into [0, 1e12).
func New(sec, pico int64) Timestamp {
	sec += pico / PicosPerSecond
	pico %= PicosPerSecond
	if pico < 0 {
		sec--
		pico += PicosPerSecond
	}
	return Timestamp{sec: sec, pico: pico}
}

// FromTime converts a time.Time, keeping its full nanosecond precision.
func FromTime(t time.Time) Timestamp {
	return New(t.Unix(), int64(t.Nanosecond())*1000)
}

// Unix returns the whole-second part.
func (t Timestamp) Unix() int64 { return t.sec }

// Pico returns the picosecond fraction in [0, 1e12).
func (t Timestamp) Pico() int64 { return t.pico }

// Time converts to a time.Time, truncating below nanosecond resolution.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.sec, t.pico/1000)
}

// Seconds returns the timestamp as float64 seconds. Lossy for large epochs;
// intended for display only, never for differencing.
func (t Timestamp) Seconds() float64 {
	return float64(t.sec) + float64(t.pico)/float64(PicosPerSecond)
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool {
	if t.sec != u.sec {
		return t.sec < u.sec
	}
	return t.pico < u.pico
}

// Equal reports whether t and u are the same instant.
func (t Timestamp) Equal(u Timestamp) bool {
	return t.sec == u.sec && t.pico == u.pico
}

// Sub returns the exact difference t − u.
func (t Timestamp) Sub(u Timestamp) Delta {
	return Delta((t.sec-u.sec)*PicosPerSecond + (t.pico - u.pico))
}

// String formats the timestamp as decimal seconds with the full picosecond
// fraction, e.g. "1700000000.000000003300".
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%012d", t.sec, t.pico)
}

// Parse reads a decimal-seconds string such as "1700000000.0000033".
// Fractional digits beyond picoseconds are truncated.
func Parse(s string) (Timestamp, error) {
	intPart, fracPart, _ := strings.Cut(strings.TrimSpace(s), ".")
	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	if fracPart == "" {
		return New(sec, 0), nil
	}
	if len(fracPart) > 12 {
		fracPart = fracPart[:12]
	}
	pico, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp fraction %q: %w", s, err)
	}
	for i := len(fracPart); i < 12; i++ {
		pico *= 10
	}
	if sec < 0 {
		// "-5.25" means 5.25 seconds before the epoch.
		return New(sec, -pico), nil
	}
	return New(sec, pico), nil
}

// Delta is an exact signed interval between two Timestamps, in picoseconds.
type Delta int64

// Seconds returns the interval as float64 seconds. Intervals inside one
// epoch are far below a second, so the conversion keeps full precision
// where it matters.
func (d Delta) Seconds() float64 {
	return float64(d) / float64(PicosPerSecond)
}

// Picoseconds returns the raw picosecond count.
func (d Delta) Picoseconds() int64 { return int64(d) }

// Negative reports whether the interval is below zero.
func (d Delta) Negative() bool { return d < 0 }
