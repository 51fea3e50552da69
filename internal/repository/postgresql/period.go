package postgresql

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

// Periods are stored as DATE columns holding the first day of the month.

func periodDate(p period.Period) time.Time {
	return p.Start()
}

func nullablePeriodDate(p *period.Period) *time.Time {
	if p == nil {
		return nil
	}
	t := p.Start()
	return &t
}

func nullablePeriod(t *time.Time) *period.Period {
	if t == nil {
		return nil
	}
	p := period.FromTime(*t)
	return &p
}
