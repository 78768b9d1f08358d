package attendance

import (
	"context"
)

// EntryRepository persists attendance entries.
//
// Append stores each entry whose natural key is not already present and
// silently skips the rest. It returns how many entries were stored. When the
// medium is unavailable nothing from the batch is written.
type EntryRepository interface {
	List(ctx context.Context, f Filter) ([]Entry, error)
	Append(ctx context.Context, entries []Entry) (int, error)
}

// Roster is the immutable class and student reference data.
type Roster struct {
	classes  []Class
	students []Student
	byClass  map[string]Class
	byID     map[string]Student
}

// NewRoster indexes the given reference data. Input order is preserved for listings.
func NewRoster(classes []Class, students []Student) *Roster {
	r := &Roster{
		classes:  append([]Class(nil), classes...),
		students: append([]Student(nil), students...),
		byClass:  make(map[string]Class, len(classes)),
		byID:     make(map[string]Student, len(students)),
	}
	for _, c := range r.classes {
		r.byClass[c.ID] = c
	}
	for _, s := range r.students {
		r.byID[s.ID] = s
	}
	return r
}

// Class looks up a class by id.
func (r *Roster) Class(id string) (Class, bool) {
	c, ok := r.byClass[id]
	return c, ok
}

// Student looks up a student by id.
func (r *Roster) Student(id string) (Student, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Classes returns the classes owned by facultyID.
func (r *Roster) Classes(facultyID string) []Class {
	out := []Class{}
	for _, c := range r.classes {
		if c.FacultyID == facultyID {
			out = append(out, c)
		}
	}
	return out
}

// Students returns the roster of classID in seed order.
func (r *Roster) Students(classID string) []Student {
	out := []Student{}
	for _, s := range r.students {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	return out
}

// Store is the attendance store: reference data plus an entry repository.
type Store struct {
	roster *Roster
	repo   EntryRepository
}

// NewStore wires a roster to a repository.
func NewStore(roster *Roster, repo EntryRepository) *Store {
	return &Store{roster: roster, repo: repo}
}

// Roster exposes the reference data.
func (s *Store) Roster() *Roster { return s.roster }

// ListClasses returns classes owned by the faculty.
func (s *Store) ListClasses(facultyID string) []Class {
	return s.roster.Classes(facultyID)
}

// ListStudents returns the roster for a class.
func (s *Store) ListStudents(classID string) []Student {
	return s.roster.Students(classID)
}

// ListAttendance returns entries matching every predicate in f.
func (s *Store) ListAttendance(ctx context.Context, f Filter) ([]Entry, error) {
	entries, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// AppendAttendance stores entries whose natural key is new.
func (s *Store) AppendAttendance(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	return s.repo.Append(ctx, entries)
}

// dedupe drops entries whose key is in seen or repeated within the batch,
// recording accepted keys in seen.
func dedupe(seen map[Key]struct{}, entries []Entry) []Entry {
	fresh := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh
}
