package v1

import (
	"fmt"
)

// PositionInterval is one stored row of an employee's position timeline:
// the position that was in effect from ValidFrom through ValidTo, inclusive.
// A nil ValidTo means the interval is open-ended (still in effect).
type PositionInterval struct {
	// ID is the unique immutable identifier assigned at creation (UUID).
	ID string `json:"id"`

	// EmployeeID is the employee's identifier in the external HR system.
	EmployeeID string `json:"employee_id"`

	// EmployeeName is a denormalized display name. Not authoritative; the
	// HR system owns the name, this copy just makes rows readable.
	EmployeeName string `json:"employee_name"`

	// PositionName is the position label effective during the interval.
	PositionName string `json:"position_name"`

	// ValidFrom is the inclusive start date.
	ValidFrom Date `json:"valid_from"`

	// ValidTo is the inclusive end date, nil for open-ended.
	ValidTo *Date `json:"valid_to"`
}

// Open reports whether the interval is open-ended.
func (p PositionInterval) Open() bool { return p.ValidTo == nil }

// Covers reports whether the interval is in effect on the given date.
func (p PositionInterval) Covers(d Date) bool {
	if d.Before(p.ValidFrom) {
		return false
	}
	return p.ValidTo == nil || !d.After(*p.ValidTo)
}

// PositionPeriod is one interval clipped to a requested query window.
// Both bounds are always present: an open-ended stored interval is reported
// as extending to the window end, without being persisted that way.
type PositionPeriod struct {
	PositionName string `json:"position_name"`
	ValidFrom    Date   `json:"valid_from"`
	ValidTo      Date   `json:"valid_to"`
}

// Days returns the inclusive day count of the period.
func (p PositionPeriod) Days() int {
	return p.ValidFrom.DaysUntil(p.ValidTo) + 1
}

// ActiveEmployee is one entry of the active-employee listing: the employee's
// current position and the date it took effect.
type ActiveEmployee struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Since      Date   `json:"since"`
}

// Correction is a manual position change submitted by an operator,
// effective from an arbitrary (possibly past) date.
type Correction struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	PositionName  string `json:"position_name"`
	EffectiveDate Date   `json:"effective_date"`
}

// Validate checks required fields. The future-date rule is enforced by the
// correction workflow, not here, so reconciliation can reuse this type freely.
func (c *Correction) Validate() error {
	if c.EmployeeID == "" {
		return fmt.Errorf("employee_id is required")
	}
	if c.EmployeeName == "" {
		return fmt.Errorf("employee_name is required")
	}
	if c.PositionName == "" {
		return fmt.Errorf("position_name is required")
	}
	if c.EffectiveDate.IsZero() {
		return fmt.Errorf("effective_date is required")
	}
	return nil
}
