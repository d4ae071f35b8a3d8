// Package timeline holds the pure interval arithmetic behind the position
// timeline store: adjustment planning for writes, window clipping for reads,
// and pay-period splitting for payroll consumers. Nothing here touches
// storage; the postgres adapter executes the plans this package computes.
package timeline

import (
	"fmt"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
)

// Truncation closes one existing interval the day before a new position
// takes effect.
type Truncation struct {
	ID         string
	NewValidTo v1.Date
}

// AdjustmentPlan is the set of changes that must be applied to an employee's
// existing intervals before inserting a new open-ended interval at a given
// effective date. The plan and the insert commit as one atomic unit.
type AdjustmentPlan struct {
	// DeleteIDs are intervals starting on or after the effective date.
	// They are fully superseded: the new interval preempts them from day one.
	DeleteIDs []string

	// Truncations are intervals starting before the effective date and
	// extending into or past it; their valid_to becomes effective-1d.
	Truncations []Truncation
}

// Empty reports whether the plan changes nothing.
func (p AdjustmentPlan) Empty() bool {
	return len(p.DeleteIDs) == 0 && len(p.Truncations) == 0
}

// PlanAdjustments computes the adjustments required to make room for a new
// interval starting at effective. Intervals ending strictly before effective
// are untouched; intervals starting at or after effective are deleted;
// anything straddling effective is truncated to effective-1d.
func PlanAdjustments(existing []v1.PositionInterval, effective v1.Date) AdjustmentPlan {
	var plan AdjustmentPlan
	cutoff := effective.AddDays(-1)

	for _, iv := range existing {
		if iv.ValidTo != nil && iv.ValidTo.Before(effective) {
			continue
		}
		if !iv.ValidFrom.Before(effective) {
			plan.DeleteIDs = append(plan.DeleteIDs, iv.ID)
			continue
		}
		plan.Truncations = append(plan.Truncations, Truncation{ID: iv.ID, NewValidTo: cutoff})
	}

	return plan
}

// CheckInvariants verifies a single employee's timeline: intervals sorted by
// valid_from must not overlap, at most one may be open-ended, and an open
// interval must be the latest one. Used by tests and by the storage adapter's
// consistency probe. Input must be sorted by valid_from ascending.
func CheckInvariants(intervals []v1.PositionInterval) error {
	for i, iv := range intervals {
		if iv.ValidTo != nil && iv.ValidTo.Before(iv.ValidFrom) {
			return fmt.Errorf("interval %s: valid_to %s before valid_from %s", iv.ID, iv.ValidTo, iv.ValidFrom)
		}
		if iv.ValidTo == nil && i != len(intervals)-1 {
			return fmt.Errorf("interval %s: open-ended interval is not the latest", iv.ID)
		}
		if i == 0 {
			continue
		}
		prev := intervals[i-1]
		if prev.ValidTo == nil || !prev.ValidTo.Before(iv.ValidFrom) {
			return fmt.Errorf("intervals %s and %s overlap", prev.ID, iv.ID)
		}
	}
	return nil
}
