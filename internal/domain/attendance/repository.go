package attendance

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

// AttendanceRepository reads vectors produced by the attendance grid and
// biometric import. Employees without a stored vector are absent from the map.
type AttendanceRepository interface {
	GetVectors(ctx context.Context, p period.Period, employeeIDs []string) (map[string]Vector, error)
}
