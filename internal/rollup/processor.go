// Package rollup consumes attendance.recorded events and publishes the
// recorded day's present rate as a gauge.
package rollup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"attendvisor/internal/attendance"
	"attendvisor/internal/metrics"
	"attendvisor/internal/queue"
	"attendvisor/internal/report"
)

// Processor recomputes class/day rates.
type Processor struct {
	store *attendance.Store
	log   *zap.Logger
}

// NewProcessor creates a processor reading from store.
func NewProcessor(store *attendance.Store, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{store: store, log: log}
}

// Handle processes one message and returns the computed day rate.
// Messages of other types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) (report.DailyRate, bool, error) {
	if msg.Type != attendance.EventRecorded {
		return report.DailyRate{}, false, nil
	}
	var evt attendance.RecordedEvent
	if err := msg.Decode(&evt); err != nil {
		return report.DailyRate{}, false, fmt.Errorf("decode event: %w", err)
	}
	roster := p.store.ListStudents(evt.ClassID)
	entries, err := p.store.ListAttendance(ctx, attendance.Filter{ClassID: evt.ClassID, From: evt.Date, To: evt.Date})
	if err != nil {
		return report.DailyRate{}, false, err
	}
	series := report.DailyPresentRateSeries(entries, roster)
	if len(series) == 0 {
		return report.DailyRate{}, false, nil
	}
	day := series[0]
	metrics.ClassDayPresentRate.WithLabelValues(evt.ClassID).Set(float64(day.Rate))
	p.log.Info("rollup updated",
		zap.String("class_id", evt.ClassID),
		zap.String("date", day.Date),
		zap.Int("rate", day.Rate),
	)
	return day, true, nil
}

// Run consumes q until ctx is done or the queue closes.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if _, _, err := p.Handle(ctx, msg); err != nil {
			p.log.Warn("rollup failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
	return nil
}
