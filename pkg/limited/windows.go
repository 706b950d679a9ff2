package limited

import (
	"fmt"
	"time"

	"github.com/theory-cloud/apigwmock/pkg/config"
)

// QuotaWindow returns the UTC calendar period containing now. Days start at
// midnight, weeks on Sunday, months on the first.
func QuotaWindow(now time.Time, period config.QuotaPeriod) (TimeWindow, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var start, end time.Time
	switch period {
	case config.PeriodDay:
		start, end = day, day.AddDate(0, 0, 1)
	case config.PeriodWeek:
		start = day.AddDate(0, 0, -int(day.Weekday()))
		end = start.AddDate(0, 0, 7)
	case config.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		return TimeWindow{}, fmt.Errorf("unsupported quota period %q", period)
	}

	return TimeWindow{
		Start: start,
		End:   end,
		Key:   string(period) + "_" + start.Format(time.RFC3339),
	}, nil
}
