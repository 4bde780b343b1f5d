package multilat

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
)

// ConsensusConfig tunes how an epoch's candidates are reconciled into one
// estimate.
type ConsensusConfig struct {
	// ClusterDistanceThreshold is the maximum pairwise distance (metres)
	// for two candidates to land in the same cluster.
	ClusterDistanceThreshold float64
	// MinClusterSize is the winning-cluster member count below which the
	// epoch is flagged low confidence.
	MinClusterSize int
	// ClusterSpreadTolerance is the maximum member-to-centroid distance
	// (metres) accepted as high confidence.
	ClusterSpreadTolerance float64
}

// cluster is one group of geometrically close candidates.
type cluster struct {
	indices      []int // indices into the CandidateStore
	centroid     geom.Point
	spread       float64 // max member distance to centroid
	meanResidual float64
}

// clusterCandidates groups candidates by single-linkage: two candidates
// share a cluster iff some chain of pairwise distances below the threshold
// connects them. Same label-and-expand shape as density clustering, minus
// the core-point minimum — every candidate joins exactly one cluster.
func clusterCandidates(store *CandidateStore, threshold float64) []cluster {
	n := store.Len()
	if n == 0 {
		return nil
	}

	labels := make([]int, n) // 0=unvisited, >0=clusterID
	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		clusterID++
		labels[i] = clusterID

		// Breadth-first expansion over the linkage graph.
		queue := []int{i}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for j := 0; j < n; j++ {
				if labels[j] != 0 {
					continue
				}
				if store.Distance(cur, j) < threshold {
					labels[j] = clusterID
					queue = append(queue, j)
				}
			}
		}
	}

	clusters := make([]cluster, 0, clusterID)
	for cid := 1; cid <= clusterID; cid++ {
		var c cluster
		for i, label := range labels {
			if label == cid {
				c.indices = append(c.indices, i)
			}
		}
		c.centroid = store.Centroid(c.indices)
		var residualSum float64
		for _, i := range c.indices {
			cand := store.At(i)
			if d := geom.Distance(cand.Pos, c.centroid); d > c.spread {
				c.spread = d
			}
			residualSum += cand.Residual
		}
		c.meanResidual = residualSum / float64(len(c.indices))
		clusters = append(clusters, c)
	}
	return clusters
}

// selectWinner picks the cluster with the most members; ties break toward
// the smallest mean residual, then the lowest first index for determinism.
func selectWinner(clusters []cluster) cluster {
	best := clusters[0]
	for _, c := range clusters[1:] {
		switch {
		case len(c.indices) > len(best.indices):
			best = c
		case len(c.indices) == len(best.indices) && c.meanResidual < best.meanResidual:
			best = c
		}
	}
	return best
}

// EstimateConsensus reconciles an epoch's sealed CandidateStore into one
// FinalEstimate. combos must be the enumeration the candidates were solved
// from; it maps winning combination ids back to contributing stations.
// The returned estimate carries ConfidenceOK or ConfidenceLow; the caller
// upgrades to ConfidencePartial when it cut solving short.
//
// A store with zero candidates (every combination degenerate) yields a
// zero-position estimate flagged low confidence.
func EstimateConsensus(epoch Epoch, set *StationSet, combos []Combination, store *CandidateStore, cfg ConsensusConfig) FinalEstimate {
	est := FinalEstimate{
		EmitterID:      epoch.EmitterID,
		Timestamp:      epoch.TransmitTime,
		Confidence:     ConfidenceLow,
		CandidateCount: store.Len(),
	}
	if store.Len() == 0 {
		return est
	}

	clusters := clusterCandidates(store, cfg.ClusterDistanceThreshold)
	winner := selectWinner(clusters)

	est.Position = winner.centroid
	est.WinningClusterSize = len(winner.indices)
	est.ClusterSpread = winner.spread
	est.MeanResidual = winner.meanResidual
	est.Confidence = ConfidenceOK
	if len(winner.indices) < cfg.MinClusterSize || winner.spread > cfg.ClusterSpreadTolerance {
		est.Confidence = ConfidenceLow
	}

	est.ContributingStations, est.Delays = contributingStations(set, combos, store, winner)
	return est
}

// contributingStations resolves the winning cluster's candidates back to
// the distinct stations whose observations produced them, and summarizes
// those stations' delays.
func contributingStations(set *StationSet, combos []Combination, store *CandidateStore, winner cluster) ([]string, DelayStats) {
	stationIdx := make(map[int]struct{})
	for _, i := range winner.indices {
		combID := store.At(i).CombinationID
		if combID < 0 || combID >= len(combos) {
			continue
		}
		for _, idx := range combos[combID].Indices {
			stationIdx[idx] = struct{}{}
		}
	}

	indices := make([]int, 0, len(stationIdx))
	for idx := range stationIdx {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	ids := make([]string, 0, len(indices))
	delays := make([]float64, 0, len(indices))
	for _, idx := range indices {
		st := set.Station(idx)
		ids = append(ids, st.ID)
		delays = append(delays, st.Delay)
	}

	var stats DelayStats
	if len(delays) > 0 {
		stats = DelayStats{
			Min:  floats.Min(delays),
			Mean: stat.Mean(delays, nil),
			Max:  floats.Max(delays),
		}
	}
	return ids, stats
}
