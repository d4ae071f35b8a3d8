// Package timeline is the service layer over the position timeline store:
// request validation, the reconciliation entry point used by the monitor,
// and the HTTP surface used by payroll consumers and manual corrections.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
	"github.com/staffline-lab/staffline/internal/core/storage"
	coretl "github.com/staffline-lab/staffline/internal/core/timeline"
)

var (
	// ErrInvalidDateRange marks range queries where to < from. Returns HTTP 400.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrEffectiveDateInFuture marks corrections dated after today. The
	// correction workflow enforces this, not the store, so reconciliation
	// and backfills stay unrestricted.
	ErrEffectiveDateInFuture = errors.New("effective date is in the future")
)

// Service exposes the timeline operations to HTTP handlers and the monitor.
type Service struct {
	store            storage.TimelineStore
	maxBodySizeBytes int64
	nowFn            func() v1.Date
}

// NewService creates the timeline service.
func NewService(store storage.TimelineStore, maxBodySizeMB int) *Service {
	if store == nil {
		panic("timeline: store must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1
	}
	return &Service{
		store:            store,
		maxBodySizeBytes: int64(maxBodySizeMB) * 1024 * 1024,
		nowFn:            v1.Today,
	}
}

// CurrentPosition returns the position effective on asOf (today when zero).
// ok=false means no interval covers the date; that is not an error.
func (s *Service) CurrentPosition(ctx context.Context, employeeID string, asOf v1.Date) (string, bool, error) {
	if asOf.IsZero() {
		asOf = s.nowFn()
	}
	return s.store.CurrentPosition(ctx, employeeID, asOf)
}

// HistoryForPeriod returns the employee's clipped position periods
// intersecting [from, to].
func (s *Service) HistoryForPeriod(ctx context.Context, employeeID string, from, to v1.Date) ([]v1.PositionPeriod, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.store.HistoryForPeriod(ctx, employeeID, from, to)
}

// HistoryForPeriodBatch returns clipped periods for many employees from one
// store round trip, keyed by employee id.
func (s *Service) HistoryForPeriodBatch(ctx context.Context, employeeIDs []string, from, to v1.Date) (map[string][]v1.PositionPeriod, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.store.HistoryForPeriodBatch(ctx, employeeIDs, from, to)
}

// PositionShares returns per-position day counts and fractional shares of
// [from, to] for one employee, the split payroll uses to attribute a pay
// period across position changes.
func (s *Service) PositionShares(ctx context.Context, employeeID string, from, to v1.Date) ([]coretl.PositionShare, error) {
	periods, err := s.HistoryForPeriod(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	return coretl.SplitShares(periods), nil
}

// ListActiveEmployees returns every employee with a position in effect on
// asOf (today when zero).
func (s *Service) ListActiveEmployees(ctx context.Context, asOf v1.Date) (map[string]v1.ActiveEmployee, error) {
	if asOf.IsZero() {
		asOf = s.nowFn()
	}
	return s.store.ListActiveEmployees(ctx, asOf)
}

// ListIntervals returns the employee's raw stored timeline.
func (s *Service) ListIntervals(ctx context.Context, employeeID string) ([]v1.PositionInterval, error) {
	return s.store.ListIntervals(ctx, employeeID)
}

// ApplyCorrection records a manual position change at an arbitrary past
// date. Dates after today are rejected here, in the workflow, keeping the
// store itself free of clock assumptions.
func (s *Service) ApplyCorrection(ctx context.Context, c v1.Correction) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.EffectiveDate.After(s.nowFn()) {
		return fmt.Errorf("%w: %s", ErrEffectiveDateInFuture, c.EffectiveDate)
	}

	if err := s.store.SetPosition(ctx, c.EmployeeID, c.EmployeeName, c.PositionName, c.EffectiveDate); err != nil {
		return fmt.Errorf("apply correction: %w", err)
	}

	slog.Info("[Timeline] Manual correction applied",
		"employee_id", c.EmployeeID,
		"position", c.PositionName,
		"effective", c.EffectiveDate.String())
	return nil
}

// ReconcileFromSource compares the stored current position against an
// externally observed one and writes a new interval only when they differ.
// New employees start at fallback (today when fallback is zero); observed
// changes start today, since the exact change date is unknowable from a
// point-in-time snapshot. Idempotent: a repeated call with the same
// observation is a no-op returning changed=false.
func (s *Service) ReconcileFromSource(ctx context.Context, employeeID, employeeName, observed string, fallback v1.Date) (bool, error) {
	today := s.nowFn()

	current, ok, err := s.store.CurrentPosition(ctx, employeeID, today)
	if err != nil {
		return false, fmt.Errorf("reconcile: read current position: %w", err)
	}

	if ok && current == observed {
		return false, nil
	}

	effective := today
	if !ok {
		if !fallback.IsZero() {
			effective = fallback
		}
		slog.Info("[Timeline] New employee discovered",
			"employee_id", employeeID,
			"name", employeeName,
			"position", observed,
			"since", effective.String())
	} else {
		slog.Info("[Timeline] Position change detected",
			"employee_id", employeeID,
			"name", employeeName,
			"from", current,
			"to", observed)
	}

	if err := s.store.SetPosition(ctx, employeeID, employeeName, observed, effective); err != nil {
		return false, fmt.Errorf("reconcile: set position: %w", err)
	}
	return true, nil
}

func checkRange(from, to v1.Date) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: both from and to are required", ErrInvalidDateRange)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: to %s is before from %s", ErrInvalidDateRange, to, from)
	}
	return nil
}
