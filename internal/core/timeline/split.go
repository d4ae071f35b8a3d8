package timeline

import (
	v1 "github.com/staffline-lab/staffline/internal/api/v1"
	"github.com/shopspring/decimal"
)

// PositionShare is one position's slice of a pay period: how many calendar
// days it was in effect and its exact fraction of the covered days.
type PositionShare struct {
	PositionName string          `json:"position_name"`
	Days         int             `json:"days"`
	Share        decimal.Decimal `json:"share"`
}

// SplitShares aggregates clipped periods into per-position day counts and
// fractional shares. Shares are computed over the days actually covered by
// the periods, not the full requested window, so gaps in the timeline
// (employee not yet hired) do not dilute the attribution. Positions appear
// in order of first occurrence.
func SplitShares(periods []v1.PositionPeriod) []PositionShare {
	if len(periods) == 0 {
		return nil
	}

	order := make([]string, 0, len(periods))
	days := make(map[string]int, len(periods))
	total := 0

	for _, p := range periods {
		d := p.Days()
		if d <= 0 {
			continue
		}
		if _, seen := days[p.PositionName]; !seen {
			order = append(order, p.PositionName)
		}
		days[p.PositionName] += d
		total += d
	}

	if total == 0 {
		return nil
	}

	totalDec := decimal.NewFromInt(int64(total))
	shares := make([]PositionShare, 0, len(order))
	for _, name := range order {
		d := days[name]
		shares = append(shares, PositionShare{
			PositionName: name,
			Days:         d,
			Share:        decimal.NewFromInt(int64(d)).Div(totalDec),
		})
	}

	return shares
}
