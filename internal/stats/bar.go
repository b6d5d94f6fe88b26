package stats

import "math"

// Segments are the widths of a progress bar drawn on a 0-100 scale:
// points banked, points lost on marked work, and weight still planned.
// Together they never exceed 100.
type Segments struct {
	Contribution     float64 `json:"contribution"`
	CompletedLoss    float64 `json:"completed_loss"`
	PlannedRemaining float64 `json:"planned_remaining"`
}

// Bar lays out the progress bar for s.
func Bar(s Stats) Segments {
	planned := clamp(s.PlannedWeight, 0, 100)
	completed := clamp(s.CompletedWeight, 0, 100)
	contribution := clamp(s.Contributed, 0, 100)

	var seg Segments
	seg.Contribution = contribution
	seg.CompletedLoss = clamp(completed-contribution, 0, 100-seg.Contribution)
	seg.PlannedRemaining = clamp(planned-completed, 0, 100-seg.Contribution-seg.CompletedLoss)
	return seg
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
