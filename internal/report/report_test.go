package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendvisor/internal/attendance"
)

var roster3 = []attendance.Student{
	{ID: "A", Name: "Alice Wonderland", ClassID: "c1"},
	{ID: "B", Name: "Bob The Builder", ClassID: "c1"},
	{ID: "C", Name: "Charlie Brown", ClassID: "c1"},
}

func mark(date, student string, s attendance.Status) attendance.Entry {
	return attendance.Entry{ID: date + student, Date: date, ClassID: "c1", StudentID: student, Status: s, FacultyID: "f1"}
}

func batch(date string, s attendance.Status, n int) []attendance.Entry {
	out := make([]attendance.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mark(date, fmt.Sprintf("s%d", i), s))
	}
	return out
}

func concat(parts ...[]attendance.Entry) []attendance.Entry {
	var out []attendance.Entry
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestThreeStudentDay(t *testing.T) {
	entries := []attendance.Entry{
		mark("2024-01-01", "A", attendance.Present),
		mark("2024-01-01", "B", attendance.Absent),
		mark("2024-01-01", "C", attendance.Present),
	}
	assert.Equal(t, 67, OverallPresentRate(entries))
	assert.Equal(t, []DailyRate{{Date: "2024-01-01", Rate: 67}}, DailyPresentRateSeries(entries, roster3))
}

func TestOverallPresentRate(t *testing.T) {
	tests := []struct {
		name    string
		entries []attendance.Entry
		want    int
	}{
		{"empty", nil, 0},
		{"all present", []attendance.Entry{mark("2024-01-01", "A", attendance.Present), mark("2024-01-01", "B", attendance.Present)}, 100},
		{"all absent", []attendance.Entry{mark("2024-01-01", "A", attendance.Absent)}, 0},
		{"rounds half up", []attendance.Entry{
			mark("2024-01-01", "A", attendance.Present),
			mark("2024-01-02", "A", attendance.Absent),
			mark("2024-01-03", "A", attendance.Absent),
			mark("2024-01-04", "A", attendance.Absent),
			mark("2024-01-05", "A", attendance.Absent),
			mark("2024-01-06", "A", attendance.Absent),
			mark("2024-01-07", "A", attendance.Absent),
			mark("2024-01-08", "A", attendance.Absent),
		}, 13},
		{"one of three", []attendance.Entry{
			mark("2024-01-01", "A", attendance.Present),
			mark("2024-01-01", "B", attendance.Absent),
			mark("2024-01-01", "C", attendance.Absent),
		}, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OverallPresentRate(tt.entries)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestWeeklyTrend(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	// this week: dates after 2024-01-08; prior week: 2024-01-02..2024-01-08
	tests := []struct {
		name    string
		entries []attendance.Entry
		want    Trend
	}{
		{"no entries", nil, TrendNeutral},
		{"only this week", []attendance.Entry{mark("2024-01-10", "A", attendance.Present)}, TrendNeutral},
		{"only prior week", []attendance.Entry{mark("2024-01-05", "A", attendance.Absent)}, TrendNeutral},
		{"up", []attendance.Entry{
			mark("2024-01-10", "A", attendance.Present),
			mark("2024-01-05", "A", attendance.Absent),
		}, TrendUp},
		{"down", []attendance.Entry{
			mark("2024-01-10", "A", attendance.Absent),
			mark("2024-01-05", "A", attendance.Present),
		}, TrendDown},
		{"equal", []attendance.Entry{
			mark("2024-01-10", "A", attendance.Present),
			mark("2024-01-05", "A", attendance.Present),
		}, TrendNeutral},
		{"boundary day belongs to prior week", []attendance.Entry{
			mark("2024-01-08", "A", attendance.Present),
			mark("2024-01-09", "A", attendance.Absent),
		}, TrendDown},
		{"older than two weeks ignored", []attendance.Entry{
			mark("2024-01-01", "A", attendance.Present),
			mark("2024-01-10", "A", attendance.Absent),
		}, TrendNeutral},
		{"unrounded rates are compared", concat(
			// this week 5/13 (38.46%) against prior 3/8 (37.5%); both round to 38
			batch("2024-01-10", attendance.Present, 5),
			batch("2024-01-11", attendance.Absent, 8),
			batch("2024-01-04", attendance.Present, 3),
			batch("2024-01-05", attendance.Absent, 5),
		), TrendUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeeklyTrend(tt.entries, now))
		})
	}
}

func TestTopAbsentees(t *testing.T) {
	entries := []attendance.Entry{
		mark("2024-01-01", "C", attendance.Absent),
		mark("2024-01-02", "C", attendance.Absent),
		mark("2024-01-01", "B", attendance.Absent),
		mark("2024-01-01", "A", attendance.Present),
	}

	got := TopAbsentees(entries, roster3, 10)
	assert.Equal(t, []Absentee{
		{StudentID: "C", StudentName: "Charlie Brown", AbsenceCount: 2},
		{StudentID: "B", StudentName: "Bob The Builder", AbsenceCount: 1},
		{StudentID: "A", StudentName: "Alice Wonderland", AbsenceCount: 0},
	}, got)

	t.Run("limit truncates", func(t *testing.T) {
		got := TopAbsentees(entries, roster3, 2)
		require.Len(t, got, 2)
		assert.Equal(t, "C", got[0].StudentID)
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		assert.Len(t, TopAbsentees(entries, roster3, 0), 3)
	})

	t.Run("ties keep roster order", func(t *testing.T) {
		got := TopAbsentees(nil, roster3, 10)
		assert.Equal(t, "A", got[0].StudentID)
		assert.Equal(t, "B", got[1].StudentID)
		assert.Equal(t, "C", got[2].StudentID)
	})

	t.Run("absences outside roster are not reported", func(t *testing.T) {
		got := TopAbsentees([]attendance.Entry{mark("2024-01-01", "Z", attendance.Absent)}, roster3, 10)
		sum := 0
		for _, a := range got {
			sum += a.AbsenceCount
		}
		assert.Zero(t, sum)
	})
}

func TestDailyPresentRateSeries(t *testing.T) {
	entries := []attendance.Entry{
		mark("2024-01-03", "A", attendance.Present),
		mark("2024-01-01", "A", attendance.Present),
		mark("2024-01-01", "B", attendance.Present),
		mark("2024-01-01", "C", attendance.Present),
		mark("2024-01-02", "A", attendance.Absent),
	}
	got := DailyPresentRateSeries(entries, roster3)
	assert.Equal(t, []DailyRate{
		{Date: "2024-01-01", Rate: 100},
		{Date: "2024-01-02", Rate: 0},
		// partial recording is measured against the whole roster
		{Date: "2024-01-03", Rate: 33},
	}, got)

	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Date, got[i].Date)
	}

	assert.Equal(t, []DailyRate{}, DailyPresentRateSeries(entries, nil))
	assert.Equal(t, []DailyRate{}, DailyPresentRateSeries(nil, roster3))
}

func TestSummarizeAndClassReport(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	classes := []attendance.Class{{ID: "c1", Name: "CS", FacultyID: "f1"}, {ID: "c2", Name: "Math", FacultyID: "f1"}}
	entries := []attendance.Entry{
		mark("2024-01-01", "A", attendance.Present),
		mark("2024-01-01", "B", attendance.Absent),
		{ID: "x", Date: "2024-01-01", ClassID: "c2", StudentID: "D", Status: attendance.Absent, FacultyID: "f1"},
	}

	ov := Summarize(classes, roster3, entries, now)
	assert.Equal(t, Overview{TotalStudents: 3, TotalClasses: 2, PresentRate: 33, Trend: TrendNeutral}, ov)

	cr := ClassReport(classes[0], roster3, entries, DefaultAbsenteeLimit)
	assert.Equal(t, "c1", cr.Class.ID)
	assert.Equal(t, []DailyRate{{Date: "2024-01-01", Rate: 33}}, cr.Series)
	require.Len(t, cr.Absentees, 3)
	assert.Equal(t, "B", cr.Absentees[0].StudentID)
	assert.Equal(t, 1, cr.Absentees[0].AbsenceCount)
}
