package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

// MaxDays is the number of day slots in a vector.
const MaxDays = 31

// DayType is the per-day attendance state.
type DayType uint8

const (
	DayUnset DayType = iota
	DayWorked
	DayAbsent
	DayLeave
	DaySick
	DayHoliday
	DayStopped
	DayRest
)

// Day codes as stored by the attendance grid and the biometric import.
const (
	CodeUnset   = '-'
	CodeWorked  = 'W'
	CodeAbsent  = 'A'
	CodeLeave   = 'L'
	CodeSick    = 'S'
	CodeHoliday = 'H'
	CodeStopped = 'X'
	CodeRest    = 'R'
)

func (d DayType) String() string {
	switch d {
	case DayWorked:
		return "worked"
	case DayAbsent:
		return "absent"
	case DayLeave:
		return "leave"
	case DaySick:
		return "sick"
	case DayHoliday:
		return "holiday"
	case DayStopped:
		return "stopped"
	case DayRest:
		return "rest"
	default:
		return "unset"
	}
}

func (d DayType) Code() byte {
	switch d {
	case DayWorked:
		return CodeWorked
	case DayAbsent:
		return CodeAbsent
	case DayLeave:
		return CodeLeave
	case DaySick:
		return CodeSick
	case DayHoliday:
		return CodeHoliday
	case DayStopped:
		return CodeStopped
	case DayRest:
		return CodeRest
	default:
		return CodeUnset
	}
}

// ParseDayCode converts one stored code into a DayType.
func ParseDayCode(c byte) (DayType, error) {
	switch c {
	case CodeUnset, ' ':
		return DayUnset, nil
	case CodeWorked:
		return DayWorked, nil
	case CodeAbsent:
		return DayAbsent, nil
	case CodeLeave:
		return DayLeave, nil
	case CodeSick:
		return DaySick, nil
	case CodeHoliday:
		return DayHoliday, nil
	case CodeStopped:
		return DayStopped, nil
	case CodeRest:
		return DayRest, nil
	default:
		return DayUnset, fmt.Errorf("%w: %q", ErrInvalidDayCode, c)
	}
}

// ParseDays converts a stored code string (one byte per day) into day slots.
// Missing trailing days are unset.
func ParseDays(codes string) ([MaxDays]DayType, error) {
	var days [MaxDays]DayType
	if len(codes) > MaxDays {
		return days, fmt.Errorf("%w: %d day codes", ErrInvalidDayCode, len(codes))
	}
	for i := 0; i < len(codes); i++ {
		d, err := ParseDayCode(codes[i])
		if err != nil {
			return days, fmt.Errorf("day %d: %w", i+1, err)
		}
		days[i] = d
	}
	return days, nil
}

// FormatDays is the inverse of ParseDays.
func FormatDays(days [MaxDays]DayType) string {
	b := make([]byte, MaxDays)
	for i, d := range days {
		b[i] = d.Code()
	}
	return string(b)
}

// Vector is one employee's finalized attendance for a period.
type Vector struct {
	EmployeeID        string
	Period            period.Period
	Days              [MaxDays]DayType
	Locked            bool
	LockedAt          *time.Time
	SupplementalDays  decimal.Decimal
	SupplementalHours decimal.Decimal

	// DecodeErr is set when the stored day codes could not be parsed. It is
	// reported by Aggregate so only this employee is affected.
	DecodeErr error
}

// Summary is the reduced form of a vector.
type Summary struct {
	DaysInMonth int `json:"days_in_month"`
	Worked      int `json:"worked"`
	Absent      int `json:"absent"`
	Leave       int `json:"leave"`
	Sick        int `json:"sick"`
	Holiday     int `json:"holiday"`
	Stopped     int `json:"stopped"`
	Rest        int `json:"rest"`

	// PreHire counts days before the hire date; they are already included in Absent.
	PreHire      int `json:"pre_hire"`
	// PostContract counts days after the contract end; they are already included in Stopped.
	PostContract int `json:"post_contract"`
}

// PaidDays are worked, leave and holiday days. They are reported on the
// settlement; the base salary is prorated on worked days only.
func (s Summary) PaidDays() int {
	return s.Worked + s.Leave + s.Holiday
}

func (s Summary) AbsenceDays() int {
	return s.Absent + s.Sick + s.Stopped
}
