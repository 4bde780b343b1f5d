// Package multilat implements the TDOA multilateration core: resolving
// arrival timestamps into slant ranges, enumerating station subsets, solving
// each subset's sphere-intersection system for a candidate position, and
// reconciling the candidates of one epoch into a single consensus estimate.
//
// The pipeline per epoch is
//
//	observations → StationSet → combinations × solver → CandidateStore
//	             → consensus → FinalEstimate
//
// Epochs are independent; nothing in this package keeps cross-epoch state.
// Failures are scoped: a degenerate combination is skipped, a bad
// observation is excluded, and only an epoch with fewer than GroupSize
// usable stations aborts (without an estimate).
package multilat
