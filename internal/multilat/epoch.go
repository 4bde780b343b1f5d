package multilat

import (
	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

// Observation is one station's raw sighting of the epoch's signal.
type Observation struct {
	StationID   string
	Pos         geom.Point
	ReceiveTime timebase.Timestamp
	Delay       float64 // seconds of known station delay, 0 if none
}

// Epoch is one transmission event: the emitter, its nominal transmit time,
// and the station observations of that one signal. Each epoch is processed
// independently and yields at most one FinalEstimate.
type Epoch struct {
	EmitterID    string
	TransmitTime timebase.Timestamp
	Observations []Observation
}

// Confidence annotates how much an estimate should be trusted. Low
// confidence and partial results are quality annotations, not failures:
// the estimate still carries the best-effort position.
type Confidence string

const (
	// ConfidenceOK marks an estimate whose winning cluster met both the
	// size and spread requirements.
	ConfidenceOK Confidence = "ok"
	// ConfidenceLow marks a winning cluster that was too small or too
	// spread out.
	ConfidenceLow Confidence = "low_confidence"
	// ConfidencePartial marks an epoch finalized before all combinations
	// were solved, typically because the caller's deadline expired.
	ConfidencePartial Confidence = "partial"
)

// DelayStats summarizes per-station delays across the stations that
// contributed to the winning cluster.
type DelayStats struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// FinalEstimate is the one consensus position produced for an epoch,
// with the diagnostics downstream reporting needs.
type FinalEstimate struct {
	EmitterID            string              `json:"emitter_id"`
	Timestamp            timebase.Timestamp  `json:"-"`
	Position             geom.Point          `json:"position"`
	Confidence           Confidence          `json:"confidence"`
	ContributingStations []string            `json:"contributing_stations"`
	Delays               DelayStats          `json:"delay_stats"`
	CandidateCount       int                 `json:"candidate_count"`
	WinningClusterSize   int                 `json:"winning_cluster_size"`
	ClusterSpread        float64             `json:"cluster_spread"`
	MeanResidual         float64             `json:"mean_residual"`
}
