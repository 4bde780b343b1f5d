package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/multilat"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

// EstimateRecord is a persisted FinalEstimate plus its row identity.
type EstimateRecord struct {
	EstimateID           string               `json:"estimate_id"`
	EmitterID            string               `json:"emitter_id"`
	TransmitTime         string               `json:"transmit_time"` // decimal seconds, full precision
	Position             geom.Point           `json:"position"`
	Confidence           multilat.Confidence  `json:"confidence"`
	ContributingStations []string             `json:"contributing_stations"`
	Delays               multilat.DelayStats  `json:"delay_stats"`
	CandidateCount       int                  `json:"candidate_count"`
	WinningClusterSize   int                  `json:"winning_cluster_size"`
	ClusterSpread        float64              `json:"cluster_spread"`
	MeanResidual         float64              `json:"mean_residual"`
	CreatedAt            int64                `json:"created_at"`
}

// Timestamp parses the record's transmit time back into a Timestamp.
func (r *EstimateRecord) Timestamp() (timebase.Timestamp, error) {
	return timebase.Parse(r.TransmitTime)
}

// EstimateStore provides persistence for finalized position estimates.
type EstimateStore struct {
	db *DB
}

// NewEstimateStore creates an EstimateStore backed by the given database.
func NewEstimateStore(db *DB) *EstimateStore {
	return &EstimateStore{db: db}
}

// Insert persists a FinalEstimate and, when candidates is non-nil, the raw
// candidate set behind it for diagnostic replay. Returns the generated
// estimate id.
func (s *EstimateStore) Insert(est multilat.FinalEstimate, candidates []multilat.PositionCandidate) (string, error) {
	estimateID := uuid.New().String()

	stationsJSON, err := json.Marshal(est.ContributingStations)
	if err != nil {
		return "", fmt.Errorf("marshal contributing stations: %w", err)
	}

	err = retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO estimates (
				estimate_id, emitter_id, transmit_time, x, y, z,
				confidence, contributing_stations,
				delay_min, delay_mean, delay_max,
				candidate_count, winning_cluster_size, cluster_spread, mean_residual,
				created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			estimateID, est.EmitterID, est.Timestamp.String(),
			est.Position.X, est.Position.Y, est.Position.Z,
			string(est.Confidence), string(stationsJSON),
			est.Delays.Min, est.Delays.Mean, est.Delays.Max,
			est.CandidateCount, est.WinningClusterSize, est.ClusterSpread, est.MeanResidual,
			time.Now().UnixNano(),
		)
		if err != nil {
			return err
		}

		for _, c := range candidates {
			_, err = tx.Exec(`
				INSERT INTO estimate_candidates (estimate_id, combination_id, x, y, z, residual)
				VALUES (?, ?, ?, ?, ?, ?)`,
				estimateID, c.CombinationID, c.Pos.X, c.Pos.Y, c.Pos.Z, c.Residual,
			)
			if err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("insert estimate: %w", err)
	}
	return estimateID, nil
}

const estimateColumns = `
	estimate_id, emitter_id, transmit_time, x, y, z,
	confidence, contributing_stations,
	delay_min, delay_mean, delay_max,
	candidate_count, winning_cluster_size, cluster_spread, mean_residual,
	created_at`

// Get returns a single estimate by id.
func (s *EstimateStore) Get(estimateID string) (*EstimateRecord, error) {
	row := s.db.QueryRow(`SELECT`+estimateColumns+`
		FROM estimates WHERE estimate_id = ?`, estimateID)

	rec, err := scanEstimate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("estimate %s not found", estimateID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan estimate: %w", err)
	}
	return rec, nil
}

// List returns the most recent estimates, newest first, up to limit.
func (s *EstimateStore) List(limit int) ([]*EstimateRecord, error) {
	return s.list(`SELECT`+estimateColumns+`
		FROM estimates ORDER BY created_at DESC LIMIT ?`, limit)
}

// ListByEmitter returns the most recent estimates for one emitter,
// newest first, up to limit.
func (s *EstimateStore) ListByEmitter(emitterID string, limit int) ([]*EstimateRecord, error) {
	return s.list(`SELECT`+estimateColumns+`
		FROM estimates WHERE emitter_id = ? ORDER BY created_at DESC LIMIT ?`, emitterID, limit)
}

func (s *EstimateStore) list(query string, args ...interface{}) ([]*EstimateRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	var records []*EstimateRecord
	for rows.Next() {
		rec, err := scanEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Candidates returns the raw candidate dump stored with an estimate,
// ordered by combination id.
func (s *EstimateStore) Candidates(estimateID string) ([]multilat.PositionCandidate, error) {
	rows, err := s.db.Query(`
		SELECT combination_id, x, y, z, residual
		FROM estimate_candidates
		WHERE estimate_id = ?
		ORDER BY combination_id`, estimateID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []multilat.PositionCandidate
	for rows.Next() {
		var c multilat.PositionCandidate
		if err := rows.Scan(&c.CombinationID, &c.Pos.X, &c.Pos.Y, &c.Pos.Z, &c.Residual); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEstimate(s scanner) (*EstimateRecord, error) {
	var rec EstimateRecord
	var confidence, stationsJSON string
	err := s.Scan(
		&rec.EstimateID, &rec.EmitterID, &rec.TransmitTime,
		&rec.Position.X, &rec.Position.Y, &rec.Position.Z,
		&confidence, &stationsJSON,
		&rec.Delays.Min, &rec.Delays.Mean, &rec.Delays.Max,
		&rec.CandidateCount, &rec.WinningClusterSize, &rec.ClusterSpread, &rec.MeanResidual,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Confidence = multilat.Confidence(confidence)
	if err := json.Unmarshal([]byte(stationsJSON), &rec.ContributingStations); err != nil {
		return nil, fmt.Errorf("unmarshal contributing stations: %w", err)
	}
	return &rec, nil
}
