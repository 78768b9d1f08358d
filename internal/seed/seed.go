// Package seed provides the reference roster, the faculty directory fixtures
// and a deterministic baseline attendance generator.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"attendvisor/internal/attendance"
)

// Faculty is a seeded faculty account including its secret.
type Faculty struct {
	ID       string
	Email    string
	Name     string
	Password string
}

// DefaultDays is the length of the generated history window.
const DefaultDays = 21

// FacultyAccounts returns the seeded faculty directory.
func FacultyAccounts() []Faculty {
	return []Faculty{
		{ID: "faculty1", Email: "prof.smart@example.com", Name: "Prof. Smart", Password: "password123"},
	}
}

// Classes returns the seeded classes.
func Classes() []attendance.Class {
	return []attendance.Class{
		{ID: "class1", Name: "Computer Science 101", FacultyID: "faculty1"},
		{ID: "class2", Name: "Mathematics 202", FacultyID: "faculty1"},
	}
}

// Students returns the seeded students in roster order.
func Students() []attendance.Student {
	return []attendance.Student{
		{ID: "student1", Name: "Alice Johnson", ClassID: "class1"},
		{ID: "student2", Name: "Bob Williams", ClassID: "class1"},
		{ID: "student3", Name: "Charlie Brown", ClassID: "class1"},
		{ID: "student4", Name: "Diana Prince", ClassID: "class2"},
		{ID: "student5", Name: "Edward Nigma", ClassID: "class2"},
	}
}

// Roster builds the reference roster from the seeded classes and students.
func Roster() *attendance.Roster {
	return attendance.NewRoster(Classes(), Students())
}

// Generate produces baseline entries for every weekday in the last days days
// up to and including today. Output is fully determined by rng and today.
func Generate(rng *rand.Rand, today time.Time, days int) []attendance.Entry {
	if days <= 0 {
		days = DefaultDays
	}
	var dates []string
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, attendance.FormatDate(d))
	}

	roster := Roster()
	var out []attendance.Entry
	n := 0
	for _, cls := range Classes() {
		students := roster.Students(cls.ID)
		for _, date := range dates {
			for _, st := range students {
				out = append(out, attendance.Entry{
					ID:        fmt.Sprintf("att%d", n),
					Date:      date,
					ClassID:   cls.ID,
					StudentID: st.ID,
					Status:    status(st.ID, rng.Float64()),
					FacultyID: cls.FacultyID,
				})
				n++
			}
		}
	}
	return out
}

// status biases student2 towards absence and student1 towards presence.
func status(studentID string, r float64) attendance.Status {
	s := attendance.Present
	switch {
	case studentID == "student2" && r < 0.4:
		s = attendance.Absent
	case r < 0.15:
		s = attendance.Absent
	}
	if studentID == "student1" && r < 0.9 {
		s = attendance.Present
	}
	return s
}

// Generator returns a closure suitable for lazily seeding a repository.
func Generator(seed int64, now func() time.Time, days int) func() []attendance.Entry {
	return func() []attendance.Entry {
		return Generate(rand.New(rand.NewSource(seed)), now(), days)
	}
}
