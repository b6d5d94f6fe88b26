// Package stats computes progress toward a subject's final grade and the
// average needed on unmarked work to reach the pass mark.
//
// Weights and marks are percentages. A subject's grade is always taken out
// of 100 points, whatever the declared weights add up to.
package stats

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/stemsi/gradebook/internal/model"
)

const (
	DefaultPassMark = 50.0
	Epsilon         = 1e-9
	// MaxNeeded caps achievable needed averages.
	MaxNeeded = 9999.0
)

// Needed is the average required on the remaining weight: either an
// achievable percentage or impossible, when no weight is left to close the gap.
type Needed struct {
	value      float64
	impossible bool
}

// Achievable returns a finite needed average.
func Achievable(v float64) Needed { return Needed{value: v} }

// Impossible returns the needed average for a subject that can no longer pass.
func Impossible() Needed { return Needed{impossible: true} }

// Value returns the needed average and false when passing is impossible.
func (n Needed) Value() (float64, bool) { return n.value, !n.impossible }

func (n Needed) IsImpossible() bool { return n.impossible }

func (n Needed) String() string {
	if n.impossible {
		return "impossible"
	}
	return fmt.Sprintf("%.2f%%", n.value)
}

// MarshalJSON encodes an achievable value as a number and impossible as the
// string "impossible".
func (n Needed) MarshalJSON() ([]byte, error) {
	if n.impossible {
		return []byte(`"impossible"`), nil
	}
	return json.Marshal(n.value)
}

// Stats summarizes a subject's assessments against a pass mark.
type Stats struct {
	CompletedWeight        float64  `json:"completed_weight"`
	PlannedWeight          float64  `json:"planned_weight"`
	Contributed            float64  `json:"contributed"`
	CurrentAvgCompleted    *float64 `json:"current_avg_completed"`
	NeededAvgRemaining     Needed   `json:"needed_avg_remaining"`
	RemainingPlannedWeight float64  `json:"remaining_planned_weight"`
}

// Compute summarizes the assessments. It has no side effects and never
// fails: with nothing marked the current average is nil.
func Compute(assessments []model.Assessment, passMark float64) Stats {
	var s Stats
	for _, a := range assessments {
		s.PlannedWeight += a.Weight
		if a.Mark == nil {
			continue
		}
		s.CompletedWeight += a.Weight
		s.Contributed += a.Weight * (*a.Mark / 100)
	}

	if s.CompletedWeight > Epsilon {
		avg := s.Contributed / s.CompletedWeight * 100
		s.CurrentAvgCompleted = &avg
	}

	s.RemainingPlannedWeight = math.Max(0, 100-s.CompletedWeight)
	s.NeededAvgRemaining = needed(s.Contributed, s.RemainingPlannedWeight, passMark)
	return s
}

func needed(contributed, remaining, passMark float64) Needed {
	if remaining <= Epsilon {
		if contributed >= passMark-Epsilon {
			return Achievable(0)
		}
		return Impossible()
	}
	v := (passMark - contributed) / (remaining / 100)
	return Achievable(math.Max(0, math.Min(v, MaxNeeded)))
}
