package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/monitoring"
	"github.com/qrqiuren/lonepseudoranger/internal/multilat"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

// Record is one parsed observation line before epoch grouping.
type Record struct {
	EmitterID    string
	TransmitTime timebase.Timestamp
	StationID    string
	ReceiveTime  timebase.Timestamp
	Delay        float64
}

// ParseRecord parses one observation line of the form
//
//	emitterID,transmitTime,stationID,receiveTime[,delay]
//
// with timestamps as decimal seconds. Lines starting with '#' and blank
// lines are skipped by the stream reader, not here.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 && len(fields) != 5 {
		return Record{}, fmt.Errorf("invalid record format: %d fields, expected 4 or 5", len(fields))
	}

	var rec Record
	rec.EmitterID = strings.TrimSpace(fields[0])
	if rec.EmitterID == "" {
		return Record{}, fmt.Errorf("empty emitter id")
	}

	var err error
	if rec.TransmitTime, err = timebase.Parse(fields[1]); err != nil {
		return Record{}, fmt.Errorf("transmit time: %w", err)
	}

	rec.StationID = strings.TrimSpace(fields[2])
	if rec.StationID == "" {
		return Record{}, fmt.Errorf("empty station id")
	}

	if rec.ReceiveTime, err = timebase.Parse(fields[3]); err != nil {
		return Record{}, fmt.Errorf("receive time: %w", err)
	}

	if len(fields) == 5 {
		if rec.Delay, err = strconv.ParseFloat(strings.TrimSpace(fields[4]), 64); err != nil {
			return Record{}, fmt.Errorf("delay: %w", err)
		}
	}
	return rec, nil
}

// StreamStats counts what happened while reading one stream.
type StreamStats struct {
	Lines           int
	Parsed          int
	ParseErrors     int
	UnknownStations int
}

// ReadEpochs consumes an observation stream, resolves station ids against
// the registry, and groups records into epochs keyed by (emitter id,
// transmit time). Epochs come back in first-seen order with observations
// in stream order, so downstream combination ids are reproducible for the
// same input. Bad lines and unknown stations are counted and logged, and
// the stream continues.
func ReadEpochs(r io.Reader, reg *Registry) ([]multilat.Epoch, StreamStats, error) {
	var stats StreamStats
	var order []string
	grouped := make(map[string]*multilat.Epoch)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		stats.Lines++
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			stats.ParseErrors++
			monitoring.Logf("observation line %d: %v", stats.Lines, err)
			continue
		}

		st, ok := reg.Lookup(rec.StationID)
		if !ok {
			stats.UnknownStations++
			monitoring.Logf("observation line %d: unknown station %q", stats.Lines, rec.StationID)
			continue
		}

		delay := rec.Delay
		if delay == 0 {
			delay = st.Delay
		}

		key := rec.EmitterID + "\x00" + rec.TransmitTime.String()
		epoch, ok := grouped[key]
		if !ok {
			epoch = &multilat.Epoch{EmitterID: rec.EmitterID, TransmitTime: rec.TransmitTime}
			grouped[key] = epoch
			order = append(order, key)
		}
		epoch.Observations = append(epoch.Observations, multilat.Observation{
			StationID:   rec.StationID,
			Pos:         geom.Point{X: st.X, Y: st.Y, Z: st.Z},
			ReceiveTime: rec.ReceiveTime,
			Delay:       delay,
		})
		stats.Parsed++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read observation stream: %w", err)
	}

	epochs := make([]multilat.Epoch, 0, len(order))
	for _, key := range order {
		epochs = append(epochs, *grouped[key])
	}
	return epochs, stats, nil
}
