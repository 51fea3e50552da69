package employee

import "errors"

var (
	ErrEmployeeNotFound        = errors.New("employee not found")
	ErrEmployeeHasNoBaseSalary = errors.New("employee has no base salary configured")
)
