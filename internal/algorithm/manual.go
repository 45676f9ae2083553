package algorithm

// ManualOrderBetween returns the order value for a room dropped between two
// neighbours in a Manual bucket. A nil neighbour marks a bucket end; the
// ends default to 0 and 1. Past an existing value of 1 or more the next
// whole step is used, and likewise before a value of 0 or less.
func ManualOrderBetween(prev, next *float64) float64 {
	switch {
	case prev == nil && next == nil:
		return 0.5
	case next == nil && *prev >= 1:
		return *prev + 1
	case prev == nil && *next <= 0:
		return *next - 1
	}

	lo, hi := 0.0, 1.0
	if prev != nil {
		lo = *prev
	}
	if next != nil {
		hi = *next
	}
	return (lo + hi) / 2
}
