// Package report renders read-only views of pipeline snapshots: text
// summaries for logs and operators, and scatter plots of an epoch's
// candidate cloud. The core never formats its own output; everything
// presentational lives here.
package report

import (
	"fmt"
	"strings"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/multilat"
)

// StationTable lists an epoch's stations with their resolved ranges.
func StationTable(stations []multilat.Station) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %12s %12s %12s %14s %10s\n", "STATION", "X", "Y", "Z", "RANGE", "DELAY")
	for _, st := range stations {
		fmt.Fprintf(&b, "%-12s %12.2f %12.2f %12.2f %14.3f %10.4f\n",
			st.ID, st.Pos.X, st.Pos.Y, st.Pos.Z, st.Range, st.Delay)
	}
	return b.String()
}

// CandidateList lists the solved candidates of one epoch in combination
// order, with residuals.
func CandidateList(candidates []multilat.PositionCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6s %14s %14s %14s %12s\n", "COMB", "X", "Y", "Z", "RESIDUAL")
	for _, c := range candidates {
		fmt.Fprintf(&b, "%6d %14.3f %14.3f %14.3f %12.4g\n",
			c.CombinationID, c.Pos.X, c.Pos.Y, c.Pos.Z, c.Residual)
	}
	return b.String()
}

// AveragePosition returns the unweighted average of all candidates,
// regardless of clustering. A coarse diagnostic: far from the consensus
// position it signals heavy outlier contamination.
func AveragePosition(candidates []multilat.PositionCandidate) geom.Point {
	points := make([]geom.Point, len(candidates))
	for i, c := range candidates {
		points[i] = c.Pos
	}
	return geom.Centroid(points)
}

// Summary renders a one-epoch result for logs.
func Summary(result *multilat.EpochResult) string {
	est := result.Estimate
	var b strings.Builder
	fmt.Fprintf(&b, "epoch %s @ %s: position (%.2f, %.2f, %.2f) confidence=%s\n",
		est.EmitterID, est.Timestamp, est.Position.X, est.Position.Y, est.Position.Z, est.Confidence)
	fmt.Fprintf(&b, "  candidates=%d winning_cluster=%d spread=%.2fm mean_residual=%.4g\n",
		est.CandidateCount, est.WinningClusterSize, est.ClusterSpread, est.MeanResidual)
	fmt.Fprintf(&b, "  stations=%s delays min/mean/max=%.4f/%.4f/%.4f\n",
		strings.Join(est.ContributingStations, ","), est.Delays.Min, est.Delays.Mean, est.Delays.Max)
	if len(result.Rejected) > 0 {
		ids := make([]string, len(result.Rejected))
		for i, r := range result.Rejected {
			ids[i] = r.StationID
		}
		fmt.Fprintf(&b, "  rejected=%s\n", strings.Join(ids, ","))
	}
	if result.Degenerate > 0 {
		fmt.Fprintf(&b, "  degenerate_combinations=%d\n", result.Degenerate)
	}
	return b.String()
}
