// Package monitor periodically reconciles the position timeline against
// the HR directory.
package monitor

import (
	"context"
	"log/slog"
	"time"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
	"github.com/staffline-lab/staffline/internal/hr"
)

// Source provides the current staffing snapshot.
type Source interface {
	FetchEmployees(ctx context.Context) (map[string]hr.Observation, error)
}

// Reconciler folds one observation into the stored timeline. changed
// reports whether a write happened.
type Reconciler interface {
	ReconcileFromSource(ctx context.Context, employeeID, employeeName, observed string, fallback v1.Date) (bool, error)
}

// Scheduler runs reconciliation on a periodic interval. It is stateless:
// each run independently compares the full directory snapshot against the
// stored timelines, so a missed or failed run is healed by the next one.
type Scheduler struct {
	interval   time.Duration
	source     Source
	reconciler Reconciler
	fallback   v1.Date
}

// NewScheduler creates a reconciliation scheduler. fallback is the
// effective date given to employees seen for the first time, so their
// position reads as long-standing rather than starting today.
func NewScheduler(interval time.Duration, source Source, reconciler Reconciler, fallback v1.Date) *Scheduler {
	return &Scheduler{
		interval:   interval,
		source:     source,
		reconciler: reconciler,
		fallback:   fallback,
	}
}

// Start begins periodic reconciliation with an immediate first run.
// Runs until context is cancelled. Per-run failures are logged and the
// loop continues; only cancellation stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Monitor] Starting position reconciliation scheduler",
		"interval", s.interval,
		"fallback_start", s.fallback.String(),
	)

	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("[Monitor] Stopping (context cancelled)")
			return nil
		}
	}
}

// RunOnce performs a single reconciliation pass. Exposed for manual
// triggering and tests; Start calls it on every tick.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	observations, err := s.source.FetchEmployees(ctx)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		slog.Warn("[Monitor] HR directory returned no employees, skipping run")
		return nil
	}

	slog.Info("[Monitor] Directory snapshot received", "employees", len(observations))

	changed := 0
	failed := 0
	for employeeID, obs := range observations {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wrote, err := s.reconciler.ReconcileFromSource(ctx, employeeID, obs.Name, obs.Position, s.fallback)
		if err != nil {
			failed++
			slog.Error("[Monitor] Reconciliation failed for employee",
				"employee_id", employeeID,
				"error", err,
			)
			continue
		}
		if wrote {
			changed++
		}
	}

	if changed > 0 || failed > 0 {
		slog.Info("[Monitor] Reconciliation run complete",
			"changed", changed,
			"failed", failed,
			"total", len(observations),
		)
	} else {
		slog.Info("[Monitor] No position changes detected")
	}
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("[Monitor] Reconciliation run failed", "error", err)
	}
}
