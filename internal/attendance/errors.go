package attendance

import "errors"

var (
	ErrClassNotFound  = errors.New("class not found")
	ErrUnknownStudent = errors.New("student not in class roster")
	ErrInvalidDate    = errors.New("invalid date")
	ErrFutureDate     = errors.New("date is in the future")
	ErrInvalidStatus  = errors.New("status must be Present or Absent")
	ErrNoStudents     = errors.New("no students to record attendance for")
)
