package model

// Subject is a gradable course holding its assessments in display order.
type Subject struct {
	Title       string       `json:"title"`
	Assessments []Assessment `json:"assessments"`
}

func (s *Subject) clone() *Subject {
	out := &Subject{Title: s.Title, Assessments: make([]Assessment, len(s.Assessments))}
	for i, a := range s.Assessments {
		out.Assessments[i] = a.clone()
	}
	return out
}
