// Package insight asks an external text-generation service for a narrative
// about a class's attendance history.
package insight

import (
	"context"
	"errors"

	"attendvisor/internal/attendance"
)

// MinHistory is the fewest historical entries callers should send.
const MinHistory = 5

var (
	// ErrGenerationFailed covers every failure of a request: transport,
	// service status, malformed output and schema violations alike.
	ErrGenerationFailed = errors.New("insight generation failed")
	// ErrInsufficientData is returned by CheckHistory.
	ErrInsufficientData = errors.New("not enough historical data for this class to generate insights")
)

// Result is the validated answer of the service.
type Result struct {
	Improved  bool   `json:"improved"`
	Narrative string `json:"narrative"`
}

// Requester produces insights. Implementations do not cache or retry.
type Requester interface {
	Request(ctx context.Context, history []attendance.HistoricalEntry, facultyName, className string) (Result, error)
}

// CheckHistory enforces the caller-side minimum before any request is made.
func CheckHistory(history []attendance.HistoricalEntry) error {
	if len(history) < MinHistory {
		return ErrInsufficientData
	}
	return nil
}

// Input is the request payload sent to the service.
type Input struct {
	FacultyName              string `json:"facultyName" validate:"required"`
	ClassName                string `json:"className" validate:"required"`
	HistoricalAttendanceData string `json:"historicalAttendanceData" validate:"required,json"`
}

// Output is the fixed two-field schema the service must answer with. Both
// keys must be present; an empty narrative is allowed.
type Output struct {
	HasImproved *bool   `json:"hasImproved" validate:"required"`
	Insights    *string `json:"insights" validate:"required"`
}
