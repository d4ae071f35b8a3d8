package storage

import (
	"context"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
)

// TimelineStore is the persistence contract of the position timeline.
// Absence of data is reported as an empty result or a false ok flag, never
// as an error; errors mean the backing store itself failed.
type TimelineStore interface {
	// CurrentPosition returns the position effective on asOf, choosing the
	// interval with the greatest valid_from if overlapping rows exist.
	CurrentPosition(ctx context.Context, employeeID string, asOf v1.Date) (string, bool, error)

	// HistoryForPeriod returns every interval intersecting [from, to],
	// clipped to the window, ordered by valid_from ascending.
	HistoryForPeriod(ctx context.Context, employeeID string, from, to v1.Date) ([]v1.PositionPeriod, error)

	// HistoryForPeriodBatch is HistoryForPeriod for many employees in one
	// round trip, keyed by employee id. Employees with no intersecting
	// intervals are absent from the result.
	HistoryForPeriodBatch(ctx context.Context, employeeIDs []string, from, to v1.Date) (map[string][]v1.PositionPeriod, error)

	// SetPosition establishes a position open-ended from the effective date.
	// All interval adjustments and the insert commit as one transaction,
	// with the employee's rows locked for the duration of the write.
	SetPosition(ctx context.Context, employeeID, employeeName, positionName string, effective v1.Date) error

	// ListActiveEmployees returns one entry per employee whose latest
	// interval covers asOf.
	ListActiveEmployees(ctx context.Context, asOf v1.Date) (map[string]v1.ActiveEmployee, error)

	// ListIntervals returns an employee's full stored timeline, ordered by
	// valid_from ascending, unclipped.
	ListIntervals(ctx context.Context, employeeID string) ([]v1.PositionInterval, error)
}
