package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// GetVectors implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetVectors(ctx context.Context, p period.Period, employeeIDs []string) (map[string]attendance.Vector, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT employee_id, days, locked, locked_at, supplemental_days, supplemental_hours
		FROM attendance_vectors
		WHERE period = $1 AND employee_id = ANY($2)
	`

	rows, err := q.Query(ctx, query, p.Start(), employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance vectors: %w", err)
	}
	defer rows.Close()

	vectors := make(map[string]attendance.Vector, len(employeeIDs))
	for rows.Next() {
		var (
			v     attendance.Vector
			codes string
		)
		if err := rows.Scan(&v.EmployeeID, &codes, &v.Locked, &v.LockedAt, &v.SupplementalDays, &v.SupplementalHours); err != nil {
			return nil, err
		}
		if v.Days, err = attendance.ParseDays(codes); err != nil {
			v.DecodeErr = fmt.Errorf("attendance vector of employee %s: %w", v.EmployeeID, err)
		}
		v.Period = p
		vectors[v.EmployeeID] = v
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return vectors, nil
}
