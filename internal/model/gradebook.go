package model

import (
	"fmt"
	"sort"
	"strings"
)

// SampleSubjectTitle names the subject seeded for first-time users.
const SampleSubjectTitle = "Example: Programming 101"

const newSubjectBase = "New Subject"

// GradeBook is the in-memory set of subjects for one semester. Titles are
// unique and case-sensitive. The insertion order of titles is kept so that
// documents are written in a stable order.
//
// GradeBook is not safe for concurrent use.
type GradeBook struct {
	subjects map[string]*Subject
	order    []string
}

// NewGradeBook returns an empty gradebook.
func NewGradeBook() *GradeBook {
	return &GradeBook{subjects: make(map[string]*Subject)}
}

// SampleGradeBook returns the deterministic example data shown when no
// semester document exists yet.
func SampleGradeBook() *GradeBook {
	gb := NewGradeBook()
	_ = gb.AddSubject(SampleSubjectTitle)
	_ = gb.AddAssessment(SampleSubjectTitle, Assessment{Name: "Assignment 1", Kind: "Assignment", Weight: 20, Mark: Markp(75)})
	_ = gb.AddAssessment(SampleSubjectTitle, Assessment{Name: "Midterm", Kind: "Exam", Weight: 30})
	_ = gb.AddAssessment(SampleSubjectTitle, Assessment{Name: "Final", Kind: "Exam", Weight: 50})
	return gb
}

// Len returns the number of subjects.
func (gb *GradeBook) Len() int { return len(gb.order) }

// Has reports whether a subject with the given title exists.
func (gb *GradeBook) Has(title string) bool {
	_, ok := gb.subjects[title]
	return ok
}

// Titles returns subject titles in insertion order.
func (gb *GradeBook) Titles() []string {
	return append([]string(nil), gb.order...)
}

// SortedTitles returns subject titles ordered case-insensitively, the order
// clients list them in.
func (gb *GradeBook) SortedTitles() []string {
	titles := gb.Titles()
	sort.SliceStable(titles, func(i, j int) bool {
		return strings.ToLower(titles[i]) < strings.ToLower(titles[j])
	})
	return titles
}

// Subject returns a copy of the named subject.
func (gb *GradeBook) Subject(title string) (Subject, error) {
	s, ok := gb.subjects[title]
	if !ok {
		return Subject{}, subjectNotFound(title)
	}
	return *s.clone(), nil
}

// AddSubject inserts an empty subject.
func (gb *GradeBook) AddSubject(title string) error {
	if gb.Has(title) {
		return fmt.Errorf("subject %q: %w", title, ErrDuplicateKey)
	}
	gb.subjects[title] = &Subject{Title: title, Assessments: []Assessment{}}
	gb.order = append(gb.order, title)
	return nil
}

// RemoveSubject deletes the named subject. Removing a missing subject is a no-op.
func (gb *GradeBook) RemoveSubject(title string) {
	if !gb.Has(title) {
		return
	}
	delete(gb.subjects, title)
	gb.dropOrder(title)
}

// RenameSubject moves a subject under a new title, keeping its assessments.
// The renamed subject moves to the end of the insertion order.
func (gb *GradeBook) RenameSubject(oldTitle, newTitle string) error {
	s, ok := gb.subjects[oldTitle]
	if !ok {
		return subjectNotFound(oldTitle)
	}
	if oldTitle == newTitle {
		return nil
	}
	if gb.Has(newTitle) {
		return fmt.Errorf("subject %q: %w", newTitle, ErrDuplicateKey)
	}
	delete(gb.subjects, oldTitle)
	gb.dropOrder(oldTitle)
	s.Title = newTitle
	gb.subjects[newTitle] = s
	gb.order = append(gb.order, newTitle)
	return nil
}

// AddAssessment appends an assessment to the named subject.
func (gb *GradeBook) AddAssessment(title string, a Assessment) error {
	s, ok := gb.subjects[title]
	if !ok {
		return subjectNotFound(title)
	}
	s.Assessments = append(s.Assessments, a.clone())
	return nil
}

// UpdateAssessment replaces the assessment at index.
func (gb *GradeBook) UpdateAssessment(title string, index int, a Assessment) error {
	s, err := gb.assessmentAt(title, index)
	if err != nil {
		return err
	}
	s.Assessments[index] = a.clone()
	return nil
}

// DeleteAssessment removes the assessment at index. Later assessments shift
// down by one, so indices held by callers are stale afterwards.
func (gb *GradeBook) DeleteAssessment(title string, index int) error {
	s, err := gb.assessmentAt(title, index)
	if err != nil {
		return err
	}
	s.Assessments = append(s.Assessments[:index], s.Assessments[index+1:]...)
	return nil
}

// NextSubjectTitle returns the first free title of the form "New Subject",
// "New Subject (1)", "New Subject (2)", ...
func (gb *GradeBook) NextSubjectTitle() string {
	return NextFreeName(newSubjectBase, gb.Has)
}

// Clone returns a deep copy.
func (gb *GradeBook) Clone() *GradeBook {
	out := NewGradeBook()
	for _, title := range gb.order {
		out.subjects[title] = gb.subjects[title].clone()
		out.order = append(out.order, title)
	}
	return out
}

// replace swaps in the contents of other.
func (gb *GradeBook) replace(other *GradeBook) {
	gb.subjects = other.subjects
	gb.order = other.order
}

func (gb *GradeBook) assessmentAt(title string, index int) (*Subject, error) {
	s, ok := gb.subjects[title]
	if !ok {
		return nil, subjectNotFound(title)
	}
	if index < 0 || index >= len(s.Assessments) {
		return nil, fmt.Errorf("subject %q index %d: %w", title, index, ErrIndexOutOfRange)
	}
	return s, nil
}

func (gb *GradeBook) dropOrder(title string) {
	for i, t := range gb.order {
		if t == title {
			gb.order = append(gb.order[:i], gb.order[i+1:]...)
			return
		}
	}
}

func subjectNotFound(title string) error {
	return fmt.Errorf("subject %q: %w", title, ErrNotFound)
}

// NextFreeName returns base if it is free, otherwise "base (1)", "base (2)",
// ... whichever is first for which taken returns false.
func NextFreeName(base string, taken func(string) bool) string {
	name := base
	for n := 1; taken(name); n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return name
}
