package multilat

// Combination is one size-k subset of an epoch's stations, identified by
// its rank in the lexicographic enumeration. The id is an integer kept
// separate from any geometric value so downstream candidates can be traced
// back to the stations that produced them.
type Combination struct {
	ID      int
	Indices []int // indices into the StationSet, strictly increasing
}

// Combinations enumerates every size-k subset of the set's stations in
// lexicographic order over station indices, assigning each its rank as id.
// The enumeration is deterministic: identical input yields identical ids
// across runs. Returns InsufficientStationsError when the set holds fewer
// than k stations.
func (s *StationSet) Combinations(k int) ([]Combination, error) {
	return enumerateCombinations(s.Len(), k)
}

func enumerateCombinations(n, k int) ([]Combination, error) {
	if k < 1 || n < k {
		return nil, &InsufficientStationsError{Have: n, Need: k}
	}

	combos := make([]Combination, 0, binomial(n, k))
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		indices := make([]int, k)
		copy(indices, idx)
		combos = append(combos, Combination{ID: len(combos), Indices: indices})

		// Advance to the next lexicographic combination.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return combos, nil
}

// binomial computes C(n, k) for the small n used in subset enumeration.
func binomial(n, k int) int {
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 0; i < k; i++ {
		result = result * (n - i) / (i + 1)
	}
	return result
}
