package timeline

import (
	"sort"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
)

// ClipToWindow restricts intervals to the [from, to] query window. Intervals
// that do not intersect the window are dropped; the rest are reported with
// valid_from = max(valid_from, from) and valid_to = min(valid_to, to), an
// open-ended interval counting as extending to the window end. The stored
// rows are never altered, only the reported bounds.
// Results are ordered by valid_from ascending.
func ClipToWindow(intervals []v1.PositionInterval, from, to v1.Date) []v1.PositionPeriod {
	periods := make([]v1.PositionPeriod, 0, len(intervals))

	for _, iv := range intervals {
		if iv.ValidFrom.After(to) {
			continue
		}
		if iv.ValidTo != nil && iv.ValidTo.Before(from) {
			continue
		}

		end := to
		if iv.ValidTo != nil {
			end = v1.MinDate(*iv.ValidTo, to)
		}

		periods = append(periods, v1.PositionPeriod{
			PositionName: iv.PositionName,
			ValidFrom:    v1.MaxDate(iv.ValidFrom, from),
			ValidTo:      end,
		})
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].ValidFrom.Before(periods[j].ValidFrom)
	})

	return periods
}

// CurrentAt returns the position effective on asOf, preferring the interval
// with the greatest valid_from should overlapping rows ever exist (a data
// anomaly the read path tolerates rather than propagates).
func CurrentAt(intervals []v1.PositionInterval, asOf v1.Date) (string, bool) {
	var (
		best  v1.PositionInterval
		found bool
	)
	for _, iv := range intervals {
		if !iv.Covers(asOf) {
			continue
		}
		if !found || iv.ValidFrom.After(best.ValidFrom) {
			best = iv
			found = true
		}
	}
	if !found {
		return "", false
	}
	return best.PositionName, true
}
