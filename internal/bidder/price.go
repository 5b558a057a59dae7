package bidder

import "math"

// ComputePrice returns floor(maxBudget × ratio), clamped to [1, maxBudget]
// for a non-zero budget. A zero budget yields 0.
func ComputePrice(maxBudget uint64, ratio float64) uint64 {
	if maxBudget == 0 {
		return 0
	}
	if ratio >= 1 {
		return maxBudget
	}
	if ratio <= 0 || math.IsNaN(ratio) {
		return 1
	}

	price := math.Floor(float64(maxBudget) * ratio)
	if price < 1 {
		return 1
	}
	if price >= float64(maxBudget) {
		return maxBudget
	}
	return uint64(price)
}
