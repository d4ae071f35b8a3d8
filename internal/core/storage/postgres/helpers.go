package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
)

// nullableDate converts a scanned NULL-able DATE column into the domain's
// optional date representation.
func nullableDate(nt sql.NullTime) *v1.Date {
	if !nt.Valid {
		return nil
	}
	d := v1.DateOf(nt.Time)
	return &d
}

// scanIntervals drains a full-row interval query into domain records.
// Takes the (rows, err) pair straight from QueryContext so callers stay
// one-liners.
func scanIntervals(rows *sql.Rows, err error) ([]v1.PositionInterval, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []v1.PositionInterval
	for rows.Next() {
		var (
			iv      v1.PositionInterval
			validTo sql.NullTime
		)
		if err := rows.Scan(&iv.ID, &iv.EmployeeID, &iv.EmployeeName, &iv.PositionName, &iv.ValidFrom, &validTo); err != nil {
			return nil, fmt.Errorf("failed to scan interval row: %w", err)
		}
		iv.ValidTo = nullableDate(validTo)
		intervals = append(intervals, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interval rows: %w", err)
	}

	return intervals, nil
}
