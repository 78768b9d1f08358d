package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendvisor/internal/queue"
)

type recordingPublisher struct {
	msgs []queue.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg queue.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

type failingRepo struct{}

func (failingRepo) List(context.Context, Filter) ([]Entry, error) { return nil, errors.New("down") }
func (failingRepo) Append(context.Context, []Entry) (int, error) { return 0, errors.New("down") }

var fixedNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

func newTestService(pub Publisher) *Service {
	store := NewStore(testRoster(), NewMemoryRepository(nil))
	return NewService(store, pub, nil, WithClock(func() time.Time { return fixedNow }))
}

func TestServiceClassOwnership(t *testing.T) {
	svc := newTestService(nil)

	c, err := svc.Class("faculty1", "class1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science 101", c.Name)

	_, err = svc.Class("faculty1", "class9")
	assert.ErrorIs(t, err, ErrClassNotFound)
	_, err = svc.Class("faculty1", "missing")
	assert.ErrorIs(t, err, ErrClassNotFound)

	_, err = svc.Students("faculty2", "class1")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestServiceRecord(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	res, err := svc.Record(ctx, "faculty1", RecordRequest{
		ClassID: "class1",
		Date:    "2024-05-15",
		Marks: []Mark{
			{StudentID: "student1", Status: Present},
			{StudentID: "student2", Status: Absent},
			{StudentID: "student3", Status: Present},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, RecordResult{Submitted: 3, Stored: 3, Skipped: 0}, res)

	entries, err := svc.List(ctx, "faculty1", Filter{ClassID: "class1"})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "faculty1", e.FacultyID)
		assert.Equal(t, "2024-05-15", e.Date)
	}

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, EventRecorded, pub.msgs[0].Type)
	var evt RecordedEvent
	require.NoError(t, pub.msgs[0].Decode(&evt))
	assert.Equal(t, RecordedEvent{ClassID: "class1", Date: "2024-05-15", Stored: 3}, evt)

	t.Run("resubmission is skipped and publishes nothing", func(t *testing.T) {
		res, err := svc.Record(ctx, "faculty1", RecordRequest{
			ClassID: "class1",
			Date:    "2024-05-15",
			Marks:   []Mark{{StudentID: "student1", Status: Absent}},
		})
		require.NoError(t, err)
		assert.Equal(t, RecordResult{Submitted: 1, Stored: 0, Skipped: 1}, res)
		assert.Len(t, pub.msgs, 1)

		rows, err := svc.Sheet(ctx, "faculty1", "class1", "2024-05-15")
		require.NoError(t, err)
		assert.Equal(t, Present, rows[0].Status)
	})
}

func TestServiceRecordValidation(t *testing.T) {
	svc := newTestService(nil)
	ok := []Mark{{StudentID: "student1", Status: Present}}

	tests := []struct {
		name    string
		faculty string
		req     RecordRequest
		want    error
	}{
		{"foreign class", "faculty2", RecordRequest{ClassID: "class1", Date: "2024-05-15", Marks: ok}, ErrClassNotFound},
		{"no marks", "faculty1", RecordRequest{ClassID: "class1", Date: "2024-05-15"}, ErrNoStudents},
		{"bad date", "faculty1", RecordRequest{ClassID: "class1", Date: "15/05/2024", Marks: ok}, ErrInvalidDate},
		{"future date", "faculty1", RecordRequest{ClassID: "class1", Date: "2024-05-16", Marks: ok}, ErrFutureDate},
		{"student of other class", "faculty1", RecordRequest{ClassID: "class1", Date: "2024-05-15",
			Marks: []Mark{{StudentID: "student4", Status: Present}}}, ErrUnknownStudent},
		{"bad status", "faculty1", RecordRequest{ClassID: "class1", Date: "2024-05-15",
			Marks: []Mark{{StudentID: "student1", Status: "Late"}}}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.faculty, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	entries, err := svc.List(context.Background(), "faculty1", Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServiceRecordStoreUnavailable(t *testing.T) {
	svc := NewService(NewStore(testRoster(), failingRepo{}), nil, nil, WithClock(func() time.Time { return fixedNow }))
	_, err := svc.Record(context.Background(), "faculty1", RecordRequest{
		ClassID: "class1",
		Date:    "2024-05-15",
		Marks:   []Mark{{StudentID: "student1", Status: Present}},
	})
	assert.Error(t, err)
}

func TestServicePublishFailureDoesNotFailRecord(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("queue full")}
	svc := newTestService(pub)
	res, err := svc.Record(context.Background(), "faculty1", RecordRequest{
		ClassID: "class2",
		Date:    "2024-05-14",
		Marks:   []Mark{{StudentID: "student4", Status: Absent}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
}

func TestServiceSheetDefaultsToPresent(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	_, err := svc.Record(ctx, "faculty1", RecordRequest{
		ClassID: "class1",
		Date:    "2024-05-14",
		Marks:   []Mark{{StudentID: "student2", Status: Absent}},
	})
	require.NoError(t, err)

	rows, err := svc.Sheet(ctx, "faculty1", "class1", "2024-05-14")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, SheetRow{StudentID: "student1", StudentName: "Alice Wonderland", Status: Present}, rows[0])
	assert.Equal(t, SheetRow{StudentID: "student2", StudentName: "Bob The Builder", Status: Absent, Recorded: true}, rows[1])

	_, err = svc.Sheet(ctx, "faculty1", "class1", "bad")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestServiceListIsFacultyScoped(t *testing.T) {
	store := NewStore(testRoster(), NewMemoryRepository([]Entry{
		entry("a", "2024-05-13", "class1", "student1", Present),
		{ID: "b", Date: "2024-05-13", ClassID: "class9", StudentID: "student9", Status: Absent, FacultyID: "faculty2"},
	}))
	svc := NewService(store, nil, nil)

	got, err := svc.List(context.Background(), "faculty1", Filter{FacultyID: "faculty2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	hist, err := svc.History(context.Background(), "faculty1", "class1")
	require.NoError(t, err)
	assert.Equal(t, []HistoricalEntry{{Date: "2024-05-13", StudentID: "student1", Status: Present}}, hist)
}
