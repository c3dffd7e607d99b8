package engine

import "sort"

// Pot is one tier of the total pot together with the seats eligible to
// win it. Side pots appear when seats are all-in for unequal amounts.
type Pot struct {
	Amount   int64
	Eligible []int // positions into the hand's seat slice
}

// buildPots partitions the seats' total contributions into pots. Distinct
// contribution levels are sliced ascending; each tier is funded by every
// seat up to that level and winnable only by non-folded seats whose
// contribution reaches it. Folded money stays in the tier it was paid
// into. Adjacent tiers with the same eligible seats are merged, so a hand
// with no all-ins yields a single pot.
func buildPots(seats []*Seat) []Pot {
	levels := make([]int64, 0, len(seats))
	for _, s := range seats {
		if s.PaidTotal > 0 {
			levels = append(levels, s.PaidTotal)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	prev := int64(0)
	for _, level := range levels {
		if level == prev {
			continue
		}
		tier := Pot{}
		for pos, s := range seats {
			paid := min64(s.PaidTotal, level) - min64(s.PaidTotal, prev)
			tier.Amount += paid
			if !s.Folded && s.PaidTotal >= level {
				tier.Eligible = append(tier.Eligible, pos)
			}
		}
		prev = level
		if tier.Amount == 0 {
			continue
		}
		if n := len(pots); n > 0 && samePositions(pots[n-1].Eligible, tier.Eligible) {
			pots[n-1].Amount += tier.Amount
			continue
		}
		pots = append(pots, tier)
	}
	return pots
}

func samePositions(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
