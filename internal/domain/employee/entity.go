package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract is the slice of the employee record the payroll engine reads.
// It is owned by the HR module and never written by payroll.
type Contract struct {
	EmployeeID       string
	EmployeeCode     string
	FullName         string
	Position         string
	BaseSalary       *decimal.Decimal
	HireDate         time.Time
	ContractEndDate  *time.Time
	Driver           bool
	NightSecurity    bool
	Household        bool
	EmploymentStatus EmploymentStatus
}

type EmploymentStatus string

const (
	EmploymentStatusActive   EmploymentStatus = "active"
	EmploymentStatusInactive EmploymentStatus = "inactive"
)

func (c Contract) IsActive() bool {
	return c.EmploymentStatus == EmploymentStatusActive
}

// EmployedBetween reports whether the contract overlaps [from, to].
func (c Contract) EmployedBetween(from, to time.Time) bool {
	if c.HireDate.After(to) {
		return false
	}
	if c.ContractEndDate != nil && c.ContractEndDate.Before(from) {
		return false
	}
	return true
}

// SeniorityYears counts full years of service from hire date up to at.
func (c Contract) SeniorityYears(at time.Time) int {
	if at.Before(c.HireDate) {
		return 0
	}
	years := at.Year() - c.HireDate.Year()
	anniversary := c.HireDate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Filter narrows the population of a payroll run.
type Filter struct {
	EmployeeIDs     []string
	Position        string
	IncludeInactive bool
}

// Narrowed reports whether the filter selects only part of the active
// workforce.
func (f Filter) Narrowed() bool {
	return len(f.EmployeeIDs) > 0 || f.Position != ""
}
