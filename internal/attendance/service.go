package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendvisor/internal/metrics"
	"attendvisor/internal/queue"
)

// EventRecorded is published after a recording batch is stored.
const EventRecorded = "attendance.recorded"

// RecordedEvent is the body of an EventRecorded message.
type RecordedEvent struct {
	ClassID string `json:"class_id"`
	Date    string `json:"date"`
	Stored  int    `json:"stored"`
}

// Publisher receives domain events. queue.Queue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Mark is one student's status in a recording request.
type Mark struct {
	StudentID string `json:"studentId" binding:"required"`
	Status    Status `json:"status" binding:"required"`
}

// RecordRequest is a batch for one class and day.
type RecordRequest struct {
	ClassID string
	Date    string
	Marks   []Mark
}

// RecordResult counts what happened to a batch.
type RecordResult struct {
	Submitted int `json:"submitted"`
	Stored    int `json:"stored"`
	Skipped   int `json:"skipped"`
}

// SheetRow prefills the recording form for one student.
type SheetRow struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Status      Status `json:"status"`
	Recorded    bool   `json:"recorded"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service coordinates recording and faculty-scoped reads.
type Service struct {
	store  *Store
	events Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a service backed by a store. events may be nil.
func NewService(store *Store, events Publisher, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: store, events: events, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store.
func (s *Service) Store() *Store { return s.store }

// Classes lists the faculty's classes.
func (s *Service) Classes(facultyID string) []Class {
	return s.store.ListClasses(facultyID)
}

// Class returns a class only if facultyID owns it.
func (s *Service) Class(facultyID, classID string) (Class, error) {
	c, ok := s.store.Roster().Class(classID)
	if !ok || c.FacultyID != facultyID {
		return Class{}, ErrClassNotFound
	}
	return c, nil
}

// Students lists the roster of an owned class.
func (s *Service) Students(facultyID, classID string) ([]Student, error) {
	if _, err := s.Class(facultyID, classID); err != nil {
		return nil, err
	}
	return s.store.ListStudents(classID), nil
}

// List returns the faculty's entries matching f. f.FacultyID is overridden.
func (s *Service) List(ctx context.Context, facultyID string, f Filter) ([]Entry, error) {
	f.FacultyID = facultyID
	return s.store.ListAttendance(ctx, f)
}

// Sheet returns one row per roster student with the stored status for date,
// or Present when nothing is recorded yet.
func (s *Service) Sheet(ctx context.Context, facultyID, classID, date string) ([]SheetRow, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	students, err := s.Students(facultyID, classID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListAttendance(ctx, Filter{ClassID: classID, From: date, To: date})
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string]Status, len(existing))
	for _, e := range existing {
		byStudent[e.StudentID] = e.Status
	}
	rows := make([]SheetRow, 0, len(students))
	for _, st := range students {
		row := SheetRow{StudentID: st.ID, StudentName: st.Name, Status: Present}
		if status, ok := byStudent[st.ID]; ok {
			row.Status = status
			row.Recorded = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Record validates and stores a batch. Marks for students already recorded
// on that date are skipped; the stored status is never changed.
func (s *Service) Record(ctx context.Context, facultyID string, req RecordRequest) (RecordResult, error) {
	class, err := s.Class(facultyID, req.ClassID)
	if err != nil {
		return RecordResult{}, err
	}
	if len(req.Marks) == 0 {
		return RecordResult{}, ErrNoStudents
	}
	day, err := ParseDate(req.Date)
	if err != nil {
		return RecordResult{}, err
	}
	if FormatDate(day) > FormatDate(s.now()) {
		return RecordResult{}, ErrFutureDate
	}

	roster := s.store.Roster()
	entries := make([]Entry, 0, len(req.Marks))
	for _, m := range req.Marks {
		st, ok := roster.Student(m.StudentID)
		if !ok || st.ClassID != class.ID {
			return RecordResult{}, fmt.Errorf("%w: %s", ErrUnknownStudent, m.StudentID)
		}
		if !m.Status.Valid() {
			return RecordResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, m.Status)
		}
		entries = append(entries, Entry{
			ID:        uuid.NewString(),
			Date:      FormatDate(day),
			ClassID:   class.ID,
			StudentID: st.ID,
			Status:    m.Status,
			FacultyID: class.FacultyID,
		})
	}

	stored, err := s.store.AppendAttendance(ctx, entries)
	if err != nil {
		return RecordResult{}, err
	}
	res := RecordResult{Submitted: len(entries), Stored: stored, Skipped: len(entries) - stored}
	metrics.EntriesSubmitted.WithLabelValues("stored").Add(float64(res.Stored))
	metrics.EntriesSubmitted.WithLabelValues("skipped").Add(float64(res.Skipped))
	s.log.Info("attendance recorded",
		zap.String("class_id", class.ID),
		zap.String("date", FormatDate(day)),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
	)

	if stored > 0 && s.events != nil {
		msg, err := queue.NewMessage(EventRecorded, RecordedEvent{ClassID: class.ID, Date: FormatDate(day), Stored: stored})
		if err == nil {
			err = s.events.Publish(ctx, msg)
		}
		if err != nil {
			s.log.Warn("event publish failed", zap.String("class_id", class.ID), zap.Error(err))
		}
	}
	return res, nil
}

// History returns the class history visible to the faculty, reduced for the
// insight service.
func (s *Service) History(ctx context.Context, facultyID, classID string) ([]HistoricalEntry, error) {
	if _, err := s.Class(facultyID, classID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListAttendance(ctx, Filter{ClassID: classID, FacultyID: facultyID})
	if err != nil {
		return nil, err
	}
	out := make([]HistoricalEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoricalEntry{Date: e.Date, StudentID: e.StudentID, Status: e.Status})
	}
	return out, nil
}
