package model

// DefaultKind is used when an assessment has no category label.
const DefaultKind = "Assessment"

// KindSuggestions are the labels clients offer; any other label is accepted.
var KindSuggestions = []string{"Assignment", "Exam", "Quiz", "Project", DefaultKind}

// Assessment is a single weighted piece of work within a subject.
// Weight is in percentage points of the final grade; Mark is a percentage
// score and nil until the work has been graded.
type Assessment struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Weight float64  `json:"weight"`
	Mark   *float64 `json:"mark"`
}

// Marked reports whether the assessment has been graded.
func (a Assessment) Marked() bool { return a.Mark != nil }

// Markp returns a pointer to m, for building marked assessments.
func Markp(m float64) *float64 { return &m }

func (a Assessment) clone() Assessment {
	if a.Mark != nil {
		a.Mark = Markp(*a.Mark)
	}
	return a
}
