package attendance

import (
	"errors"
	"time"
)

// DateLayout is the calendar-day format used for entry dates.
const DateLayout = "2006-01-02"

// Status is the recorded state of a student on a given day.
type Status string

const (
	Present Status = "Present"
	Absent  Status = "Absent"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == Present || s == Absent
}

// Class is a course owned by exactly one faculty member.
type Class struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FacultyID string `json:"facultyId"`
}

// Student belongs to exactly one class.
type Student struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"classId"`
}

// Entry is a single attendance mark. (Date, ClassID, StudentID) is its natural key.
type Entry struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	ClassID   string `json:"classId"`
	StudentID string `json:"studentId"`
	Status    Status `json:"status"`
	FacultyID string `json:"facultyId"`
}

// Key returns the natural key of the entry.
func (e Entry) Key() Key {
	return Key{Date: e.Date, ClassID: e.ClassID, StudentID: e.StudentID}
}

// Key identifies an entry by day, class and student.
type Key struct {
	Date      string
	ClassID   string
	StudentID string
}

// HistoricalEntry is the reduced view of an entry sent to the insight service.
type HistoricalEntry struct {
	Date      string `json:"date"`
	StudentID string `json:"studentId"`
	Status    Status `json:"status"`
}

// Filter selects entries. Empty fields are ignored; From and To are inclusive dates.
type Filter struct {
	ClassID   string
	FacultyID string
	From      string
	To        string
}

// Match reports whether e satisfies every predicate set on f.
func (f Filter) Match(e Entry) bool {
	if f.ClassID != "" && e.ClassID != f.ClassID {
		return false
	}
	if f.FacultyID != "" && e.FacultyID != f.FacultyID {
		return false
	}
	// dates are zero-padded so lexical order is calendar order
	if f.From != "" && e.Date < f.From {
		return false
	}
	if f.To != "" && e.Date > f.To {
		return false
	}
	return true
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidDate, err)
	}
	return t, nil
}

// FormatDate renders t as a calendar day in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
