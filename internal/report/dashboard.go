package report

import (
	"time"

	"attendvisor/internal/attendance"
)

// Overview is the headline card of the dashboard.
type Overview struct {
	TotalStudents int   `json:"totalStudents"`
	TotalClasses  int   `json:"totalClasses"`
	PresentRate   int   `json:"presentRate"`
	Trend         Trend `json:"trend"`
}

// ClassBreakdown feeds the trend and absentee charts for one class.
type ClassBreakdown struct {
	Class     attendance.Class `json:"class"`
	Series    []DailyRate      `json:"series"`
	Absentees []Absentee       `json:"absentees"`
}

// Dashboard is the full dashboard payload.
type Dashboard struct {
	Overview Overview        `json:"overview"`
	Class    *ClassBreakdown `json:"class,omitempty"`
}

// Summarize builds the overview over everything visible to a faculty member.
func Summarize(classes []attendance.Class, students []attendance.Student, entries []attendance.Entry, now time.Time) Overview {
	return Overview{
		TotalStudents: len(students),
		TotalClasses:  len(classes),
		PresentRate:   OverallPresentRate(entries),
		Trend:         WeeklyTrend(entries, now),
	}
}

// ClassReport builds the chart data for class from the entries given.
// Entries of other classes are ignored.
func ClassReport(class attendance.Class, roster []attendance.Student, entries []attendance.Entry, limit int) ClassBreakdown {
	own := make([]attendance.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ClassID == class.ID {
			own = append(own, e)
		}
	}
	return ClassBreakdown{
		Class:     class,
		Series:    DailyPresentRateSeries(own, roster),
		Absentees: TopAbsentees(own, roster, limit),
	}
}
