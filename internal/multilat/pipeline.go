package multilat

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/qrqiuren/lonepseudoranger/internal/config"
	"github.com/qrqiuren/lonepseudoranger/internal/monitoring"
)

// Config holds the pipeline's tuning parameters.
type Config struct {
	GroupSize          int     // stations per combination (k), minimum 4
	MaxConditionNumber float64 // degeneracy guard for the linear solve
	Workers            int     // parallel solver workers; 0 = NumCPU

	Consensus ConsensusConfig
}

// DefaultConfig returns the built-in tuning defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a pipeline Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		GroupSize:          cfg.GetGroupSize(),
		MaxConditionNumber: cfg.GetMaxConditionNumber(),
		Workers:            cfg.GetSolverWorkers(),
		Consensus: ConsensusConfig{
			ClusterDistanceThreshold: cfg.GetClusterDistanceThreshold(),
			MinClusterSize:           cfg.GetMinClusterSize(),
			ClusterSpreadTolerance:   cfg.GetClusterSpreadTolerance(),
		},
	}
}

// RejectedObservation records one observation excluded during StationSet
// construction, for diagnostics.
type RejectedObservation struct {
	StationID string
	Reason    error
}

// EpochResult carries everything one epoch produced: the consensus
// estimate, the raw candidates for diagnostic replay, and the exclusions
// that happened along the way.
type EpochResult struct {
	Estimate   FinalEstimate
	Candidates *CandidateStore
	Rejected   []RejectedObservation
	// Degenerate counts combinations skipped for near-singular geometry.
	Degenerate int
	// Solved counts combinations that produced a candidate. When the
	// context expired mid-epoch, Solved+Degenerate is less than the full
	// enumeration and the estimate is flagged partial.
	Solved int
}

// Pipeline processes independent epochs. Safe for concurrent use: it holds
// no per-epoch state.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates a Pipeline with the given configuration, filling
// zero values with defaults.
func NewPipeline(cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.GroupSize < 4 {
		cfg.GroupSize = def.GroupSize
	}
	if cfg.MaxConditionNumber <= 1 {
		cfg.MaxConditionNumber = def.MaxConditionNumber
	}
	if cfg.Consensus.ClusterDistanceThreshold <= 0 {
		cfg.Consensus.ClusterDistanceThreshold = def.Consensus.ClusterDistanceThreshold
	}
	if cfg.Consensus.MinClusterSize < 1 {
		cfg.Consensus.MinClusterSize = def.Consensus.MinClusterSize
	}
	if cfg.Consensus.ClusterSpreadTolerance <= 0 {
		cfg.Consensus.ClusterSpreadTolerance = def.Consensus.ClusterSpreadTolerance
	}
	return &Pipeline{cfg: cfg}
}

// Config returns the pipeline's effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Process runs one epoch end to end. Observations with invalid timing or
// duplicate station ids are excluded (recorded in Rejected) and the epoch
// proceeds on the remainder. If fewer than GroupSize stations survive, the
// epoch aborts with InsufficientStationsError and no estimate.
//
// Solving is parallelized across combinations; candidate arrival order
// does not affect the consensus result. If ctx is cancelled mid-epoch, no
// further combinations are submitted and the estimate is finalized on the
// candidates solved so far, flagged ConfidencePartial.
func (p *Pipeline) Process(ctx context.Context, epoch Epoch) (*EpochResult, error) {
	set := NewStationSet(epoch.TransmitTime)
	result := &EpochResult{}

	for _, obs := range epoch.Observations {
		if err := set.Add(obs.StationID, obs.Pos, obs.ReceiveTime, obs.Delay); err != nil {
			result.Rejected = append(result.Rejected, RejectedObservation{StationID: obs.StationID, Reason: err})
			monitoring.Logf("epoch %s/%s: excluding station %s: %v", epoch.EmitterID, epoch.TransmitTime, obs.StationID, err)
		}
	}

	combos, err := set.Combinations(p.cfg.GroupSize)
	if err != nil {
		return nil, fmt.Errorf("epoch %s/%s: %w", epoch.EmitterID, epoch.TransmitTime, err)
	}

	store := NewCandidateStore()
	degenerate, solved, truncated := p.solveAll(ctx, set, combos, store)
	store.Seal()
	result.Candidates = store
	result.Degenerate = degenerate
	result.Solved = solved

	result.Estimate = EstimateConsensus(epoch, set, combos, store, p.cfg.Consensus)
	if truncated {
		result.Estimate.Confidence = ConfidencePartial
	}
	return result, nil
}

// solveAll fans the combinations out over a bounded worker pool and merges
// candidates into the store. Returns the degenerate-combination count, the
// solved count, and whether the run was cut short by ctx.
func (p *Pipeline) solveAll(ctx context.Context, set *StationSet, combos []Combination, store *CandidateStore) (degenerate, solved int, truncated bool) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	jobs := make(chan Combination)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for comb := range jobs {
				cand, err := SolveCombination(set, comb, p.cfg.MaxConditionNumber)
				if err != nil {
					var degErr *DegenerateGeometryError
					if errors.As(err, &degErr) {
						mu.Lock()
						degenerate++
						mu.Unlock()
						continue
					}
					monitoring.Logf("combination %d: %v", comb.ID, err)
					continue
				}
				if err := store.Add(cand); err != nil {
					monitoring.Logf("combination %d: %v", comb.ID, err)
					continue
				}
				mu.Lock()
				solved++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, comb := range combos {
		select {
		case <-ctx.Done():
			truncated = true
			break feed
		case jobs <- comb:
		}
	}
	close(jobs)
	wg.Wait()
	return degenerate, solved, truncated
}
