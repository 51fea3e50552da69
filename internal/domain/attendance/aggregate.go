package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

// Aggregate reduces a locked vector to day counts for the period.
//
// Days before the hire date count as absent whatever was stored, and days after
// contractEnd count as stopped. Slots beyond the month length are ignored.
func Aggregate(v *Vector, hireDate time.Time, contractEnd *time.Time, p period.Period) (Summary, error) {
	if v == nil || !v.Locked {
		return Summary{}, ErrAttendanceNotLocked
	}
	if v.DecodeErr != nil {
		return Summary{}, v.DecodeErr
	}
	if v.Period != p {
		return Summary{}, fmt.Errorf("%w: vector %s, period %s", ErrPeriodMismatch, v.Period, p)
	}

	if v.SupplementalDays.IsNegative() || v.SupplementalHours.IsNegative() {
		return Summary{}, ErrInvalidSupplemental
	}

	hire := truncateDay(hireDate)
	var end time.Time
	if contractEnd != nil {
		end = truncateDay(*contractEnd)
	}

	s := Summary{DaysInMonth: p.DaysInMonth()}
	var unset []int
	for day := 1; day <= s.DaysInMonth; day++ {
		date := p.Date(day)
		if date.Before(hire) {
			s.Absent++
			s.PreHire++
			continue
		}
		if contractEnd != nil && date.After(end) {
			s.Stopped++
			s.PostContract++
			continue
		}

		switch v.Days[day-1] {
		case DayWorked:
			s.Worked++
		case DayAbsent:
			s.Absent++
		case DayLeave:
			s.Leave++
		case DaySick:
			s.Sick++
		case DayHoliday:
			s.Holiday++
		case DayStopped:
			s.Stopped++
		case DayRest:
			s.Rest++
		default:
			unset = append(unset, day)
		}
	}

	if len(unset) > 0 {
		return Summary{}, fmt.Errorf("%w: days %v", ErrAttendanceIncomplete, unset)
	}
	return s, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
