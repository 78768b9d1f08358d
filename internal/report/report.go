// Package report computes dashboard statistics from attendance entries.
// Every function is pure: the result depends only on the arguments.
package report

import (
	"math"
	"sort"
	"time"

	"attendvisor/internal/attendance"
)

// DefaultAbsenteeLimit caps TopAbsentees when no limit is given.
const DefaultAbsenteeLimit = 10

// Trend is the week-over-week direction of the present rate.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// Absentee is a student's absence count.
type Absentee struct {
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	AbsenceCount int    `json:"absenceCount"`
}

// DailyRate is the present rate of one day against the full roster.
type DailyRate struct {
	Date string `json:"date"`
	Rate int    `json:"rate"`
}

// percent returns round(100*part/whole), or 0 when whole is 0.
func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

func countPresent(entries []attendance.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Status == attendance.Present {
			n++
		}
	}
	return n
}

// OverallPresentRate is the rounded percentage of Present entries.
func OverallPresentRate(entries []attendance.Entry) int {
	return percent(countPresent(entries), len(entries))
}

// WeeklyTrend compares the present rate of the last seven days with the seven
// days before. Dates after now-7d are this week; dates in (now-14d, now-7d]
// are the prior week. Neutral when rates tie or either week has no entries.
func WeeklyTrend(entries []attendance.Entry, now time.Time) Trend {
	weekAgo := attendance.FormatDate(now.AddDate(0, 0, -7))
	twoWeeksAgo := attendance.FormatDate(now.AddDate(0, 0, -14))

	var thisPresent, thisTotal, priorPresent, priorTotal int
	for _, e := range entries {
		present := 0
		if e.Status == attendance.Present {
			present = 1
		}
		switch {
		case e.Date > weekAgo:
			thisTotal++
			thisPresent += present
		case e.Date > twoWeeksAgo:
			priorTotal++
			priorPresent += present
		}
	}
	if thisTotal == 0 || priorTotal == 0 {
		return TrendNeutral
	}
	// compare thisPresent/thisTotal with priorPresent/priorTotal without rounding
	lhs := thisPresent * priorTotal
	rhs := priorPresent * thisTotal
	switch {
	case lhs > rhs:
		return TrendUp
	case lhs < rhs:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// TopAbsentees counts Absent entries per roster student, most absences first.
// Students without absences are included; ties keep roster order.
func TopAbsentees(entries []attendance.Entry, roster []attendance.Student, limit int) []Absentee {
	if limit <= 0 {
		limit = DefaultAbsenteeLimit
	}
	counts := make(map[string]int, len(roster))
	for _, e := range entries {
		if e.Status == attendance.Absent {
			counts[e.StudentID]++
		}
	}
	out := make([]Absentee, 0, len(roster))
	for _, st := range roster {
		out = append(out, Absentee{StudentID: st.ID, StudentName: st.Name, AbsenceCount: counts[st.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AbsenceCount > out[j].AbsenceCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DailyPresentRateSeries returns one point per recorded date in ascending
// order. The denominator is the full roster size, so a partially recorded
// day counts missing students as not present. An empty roster gives an
// empty series.
func DailyPresentRateSeries(entries []attendance.Entry, roster []attendance.Student) []DailyRate {
	out := []DailyRate{}
	if len(roster) == 0 {
		return out
	}
	present := make(map[string]int)
	for _, e := range entries {
		n := present[e.Date]
		if e.Status == attendance.Present {
			n++
		}
		present[e.Date] = n
	}
	dates := make([]string, 0, len(present))
	for d := range present {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		out = append(out, DailyRate{Date: d, Rate: percent(present[d], len(roster))})
	}
	return out
}
