package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/repository"
	"github.com/stemsi/gradebook/internal/stats"
)

// ErrNoActiveSemester is returned when an operation needs a stored
// semester but the current one has never been saved.
var ErrNoActiveSemester = fmt.Errorf("no saved semester is active: %w", model.ErrNotFound)

// SubjectStats is the stats summary for one subject at a given pass mark.
type SubjectStats struct {
	Title    string  `json:"title"`
	PassMark float64 `json:"pass_mark"`
	stats.Stats
	Bar stats.Segments `json:"bar"`
}

// SemesterService owns the active semester: the in-memory gradebook, the
// name of the document backing it and the pass mark. Every structural
// change is written through to the store before the call returns.
//
// The active name is empty while the gradebook has never been saved (the
// sample data, or a document that failed to load); the first write then
// allocates an "Untitled Semester" name.
type SemesterService struct {
	mu       sync.Mutex
	store    repository.DocumentStore
	book     *model.GradeBook
	active   string
	passMark float64
	log      zerolog.Logger
}

// NewSemesterService returns a service over store. A pass mark that is NaN
// or outside 0..100 is replaced by stats.DefaultPassMark.
func NewSemesterService(store repository.DocumentStore, passMark float64, log zerolog.Logger) *SemesterService {
	log = log.With().Str("component", "semester_service").Logger()
	if !validPassMark(passMark) {
		log.Warn().Float64("pass_mark", passMark).Float64("default", stats.DefaultPassMark).Msg("Pass mark out of range, using default")
		passMark = stats.DefaultPassMark
	}
	return &SemesterService{
		store:    store,
		book:     model.NewGradeBook(),
		passMark: passMark,
		log:      log,
	}
}

func validPassMark(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// Startup opens the most recently modified semester. With no stored
// semesters, or when the newest one cannot be parsed, the sample gradebook
// is shown instead and nothing is overwritten.
func (s *SemesterService) Startup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list semesters: %w", err)
	}

	latest, ok := model.MostRecent(docs)
	if !ok {
		s.log.Info().Msg("No saved semesters, loading sample data")
		s.useSample()
		return nil
	}

	book, err := s.load(ctx, latest.Name)
	if err != nil {
		s.log.Warn().Err(err).Str("semester", latest.Name).Msg("Failed to load semester, loading sample data")
		s.useSample()
		return nil
	}
	s.book, s.active = book, latest.Name
	s.log.Info().Str("semester", latest.Name).Int("subjects", book.Len()).Msg("Semester loaded")
	return nil
}

// Active returns the name of the active semester, empty if unsaved.
func (s *SemesterService) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ListSemesters returns stored semesters ordered case-insensitively by name.
func (s *SemesterService) ListSemesters(ctx context.Context) ([]model.DocumentInfo, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	model.SortByName(docs)
	return docs, nil
}

// Open makes another stored semester active. On failure the current
// semester stays active.
func (s *SemesterService) Open(ctx context.Context, name string) error {
	name, err := model.CleanDocumentName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.load(ctx, name)
	if err != nil {
		return err
	}
	s.book, s.active = book, name
	s.log.Info().Str("semester", name).Int("subjects", book.Len()).Msg("Semester opened")
	return nil
}

// NewSemester starts an empty semester under the next free untitled name
// and returns that name.
func (s *SemesterService) NewSemester(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		if err := s.save(ctx); err != nil {
			return "", err
		}
	}

	name, err := s.untitledName(ctx)
	if err != nil {
		return "", err
	}
	book := model.NewGradeBook()
	if err := s.write(ctx, name, book); err != nil {
		return "", err
	}
	s.book, s.active = book, name
	s.log.Info().Str("semester", name).Msg("Semester created")
	return name, nil
}

// RenameSemester moves the active semester to a new name, keeping its
// contents. An existing semester under that name is only replaced when
// overwrite is set, and only once the contents are stored under it.
func (s *SemesterService) RenameSemester(ctx context.Context, newName string, overwrite bool) error {
	newName, err := model.CleanDocumentName(newName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if newName == s.active {
		return nil
	}

	existing, err := s.documentNames(ctx)
	if err != nil {
		return err
	}
	if existing[newName] && !overwrite {
		return fmt.Errorf("semester %q: %w", newName, model.ErrDuplicateKey)
	}

	oldName := s.active
	persisted := oldName != "" && existing[oldName]
	if persisted && !existing[newName] {
		if err := s.store.Rename(ctx, oldName, newName); err != nil {
			return err
		}
	} else {
		// Write replaces the target, so a failure leaves it untouched.
		if err := s.write(ctx, newName, s.book); err != nil {
			return err
		}
		if persisted {
			if err := s.store.Delete(ctx, oldName); err != nil && !errors.Is(err, model.ErrNotFound) {
				s.log.Warn().Err(err).Str("semester", oldName).Msg("Failed to remove renamed semester")
			}
		}
	}
	s.active = newName
	s.log.Info().Str("from", oldName).Str("to", newName).Msg("Semester renamed")
	return nil
}

// DeleteSemester deletes the active semester and makes the most recently
// modified remaining one active, or a fresh empty semester when none
// remain. It returns the name of the new active semester.
func (s *SemesterService) DeleteSemester(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.active
	if target == "" {
		return "", ErrNoActiveSemester
	}

	docs, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list semesters: %w", err)
	}

	var (
		nextBook *model.GradeBook
		nextName string
	)
	if fallback, ok := model.MostRecent(docs, target); ok {
		book, err := s.load(ctx, fallback.Name)
		if err != nil {
			s.log.Warn().Err(err).Str("semester", fallback.Name).Msg("Failed to load fallback semester, loading sample data")
			nextBook = model.SampleGradeBook()
		} else {
			nextBook, nextName = book, fallback.Name
		}
	} else {
		name, err := s.untitledName(ctx)
		if err != nil {
			return "", err
		}
		nextBook, nextName = model.NewGradeBook(), name
		if err := s.write(ctx, nextName, nextBook); err != nil {
			return "", err
		}
	}

	if err := s.store.Delete(ctx, target); err != nil && !errors.Is(err, model.ErrNotFound) {
		return "", fmt.Errorf("delete semester %q: %w", target, err)
	}
	s.book, s.active = nextBook, nextName
	s.log.Info().Str("deleted", target).Str("active", s.active).Msg("Semester deleted")
	return s.active, nil
}

// PassMark returns the current pass threshold.
func (s *SemesterService) PassMark() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passMark
}

// SetPassMark changes the pass threshold used by Stats.
func (s *SemesterService) SetPassMark(v float64) error {
	if !validPassMark(v) {
		return fmt.Errorf("pass mark %v outside 0..100: %w", v, model.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passMark = v
	return nil
}

// Subjects returns copies of all subjects, ordered case-insensitively by title.
func (s *SemesterService) Subjects() []model.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := s.book.SortedTitles()
	out := make([]model.Subject, 0, len(titles))
	for _, t := range titles {
		subj, _ := s.book.Subject(t)
		out = append(out, subj)
	}
	return out
}

// Subject returns a copy of one subject.
func (s *SemesterService) Subject(title string) (model.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Subject(title)
}

// AddSubject adds an empty subject and returns its title. A blank title
// picks the next free "New Subject" title.
func (s *SemesterService) AddSubject(ctx context.Context, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = s.book.NextSubjectTitle()
	}
	if err := s.book.AddSubject(title); err != nil {
		return "", err
	}
	return title, s.save(ctx)
}

func (s *SemesterService) RenameSubject(ctx context.Context, oldTitle, newTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newTitle == "" {
		return fmt.Errorf("subject title is empty: %w", model.ErrValidation)
	}
	if err := s.book.RenameSubject(oldTitle, newTitle); err != nil {
		return err
	}
	if oldTitle == newTitle {
		return nil
	}
	return s.save(ctx)
}

// RemoveSubject removes a subject; removing a missing subject changes nothing.
func (s *SemesterService) RemoveSubject(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.book.Has(title) {
		return nil
	}
	s.book.RemoveSubject(title)
	return s.save(ctx)
}

// AddAssessment appends an assessment and returns its index.
func (s *SemesterService) AddAssessment(ctx context.Context, title string, a model.Assessment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.book.AddAssessment(title, a); err != nil {
		return 0, err
	}
	subj, _ := s.book.Subject(title)
	return len(subj.Assessments) - 1, s.save(ctx)
}

func (s *SemesterService) UpdateAssessment(ctx context.Context, title string, index int, a model.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.book.UpdateAssessment(title, index, a); err != nil {
		return err
	}
	return s.save(ctx)
}

func (s *SemesterService) DeleteAssessment(ctx context.Context, title string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.book.DeleteAssessment(title, index); err != nil {
		return err
	}
	return s.save(ctx)
}

// Stats summarizes a subject. A nil passMark uses the service's pass mark.
func (s *SemesterService) Stats(title string, passMark *float64) (SubjectStats, error) {
	s.mu.Lock()
	pm := s.passMark
	subj, err := s.book.Subject(title)
	s.mu.Unlock()
	if err != nil {
		return SubjectStats{}, err
	}
	if passMark != nil {
		pm = *passMark
	}

	st := stats.Compute(subj.Assessments, pm)
	return SubjectStats{Title: title, PassMark: pm, Stats: st, Bar: stats.Bar(st)}, nil
}

// Export returns the active semester as a document.
func (s *SemesterService) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Serialize()
}

// Import replaces the active semester's contents with a document. A
// malformed document changes nothing.
func (s *SemesterService) Import(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.book.Deserialize(data); err != nil {
		return err
	}
	s.log.Info().Int("subjects", s.book.Len()).Msg("Semester imported")
	return s.save(ctx)
}

// save writes the gradebook to the active document, naming it first if it
// has never been saved. Callers hold s.mu.
func (s *SemesterService) save(ctx context.Context) error {
	name := s.active
	if name == "" {
		var err error
		if name, err = s.untitledName(ctx); err != nil {
			return err
		}
	}
	if err := s.write(ctx, name, s.book); err != nil {
		return err
	}
	s.active = name
	return nil
}

// write stores book under name without touching the service state.
func (s *SemesterService) write(ctx context.Context, name string, book *model.GradeBook) error {
	data, err := book.Serialize()
	if err != nil {
		return fmt.Errorf("serialize semester: %w", err)
	}
	if err := s.store.Write(ctx, name, data); err != nil {
		s.log.Error().Err(err).Str("semester", name).Msg("Failed to save semester")
		return fmt.Errorf("save semester %q: %w", name, err)
	}
	s.log.Debug().Str("semester", name).Int("bytes", len(data)).Msg("Semester saved")
	return nil
}

func (s *SemesterService) load(ctx context.Context, name string) (*model.GradeBook, error) {
	data, err := s.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	book, err := model.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("semester %q: %w", name, err)
	}
	return book, nil
}

func (s *SemesterService) useSample() {
	s.book = model.SampleGradeBook()
	s.active = ""
}

func (s *SemesterService) documentNames(ctx context.Context) (map[string]bool, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	names := make(map[string]bool, len(docs))
	for _, d := range docs {
		names[d.Name] = true
	}
	return names, nil
}

func (s *SemesterService) untitledName(ctx context.Context) (string, error) {
	existing, err := s.documentNames(ctx)
	if err != nil {
		return "", err
	}
	return model.NextFreeName(model.UntitledSemester, func(n string) bool { return existing[n] }), nil
}
