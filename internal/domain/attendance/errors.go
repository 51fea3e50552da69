package attendance

import "errors"

var (
	ErrAttendanceNotLocked  = errors.New("attendance not locked")
	ErrAttendanceIncomplete = errors.New("attendance has unset days")
	ErrInvalidDayCode       = errors.New("invalid attendance day code")
	ErrPeriodMismatch       = errors.New("attendance vector belongs to another period")
	ErrInvalidSupplemental  = errors.New("supplemental days and hours must be non-negative")
)
