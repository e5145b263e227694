package analytics

import (
	"sort"
	"time"

	"github.com/2beens/realestate/internal/apperr"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps unknown and empty values to PeriodDay.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	default:
		return PeriodDay
	}
}

// Window is the trailing interval the period covers.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Bucket is the date_trunc unit used to group the period's events.
func (p Period) Bucket() string {
	if p == PeriodWeek || p == PeriodMonth {
		return "day"
	}
	return "hour"
}

func (p Period) truncate(t time.Time) time.Time {
	t = t.UTC()
	if p.Bucket() == "day" {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Hour)
}

// Query selects events with Start <= created_at < End. A zero End leaves
// the window open towards now.
type Query struct {
	Period Period
	Start  time.Time
	End    time.Time
}

func (q Query) contains(t time.Time) bool {
	if t.Before(q.Start) {
		return false
	}
	return q.End.IsZero() || t.Before(q.End)
}

// end returns the upper bound for SQL, nil when open.
func (q Query) end() *time.Time {
	if q.End.IsZero() {
		return nil
	}
	return &q.End
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// NewQuery resolves the query window anchored at now. Explicit startDate
// and endDate override the trailing window; a date-only endDate includes
// that whole day.
func NewQuery(period, startDate, endDate string, now time.Time) (Query, error) {
	q := Query{Period: ParsePeriod(period)}
	q.Start = now.Add(-q.Period.Window())

	if startDate != "" {
		start, _, err := parseDate(startDate)
		if err != nil {
			return Query{}, apperr.Validation("invalid startDate")
		}
		q.Start = start
	}
	if endDate != "" {
		end, dateOnly, err := parseDate(endDate)
		if err != nil {
			return Query{}, apperr.Validation("invalid endDate")
		}
		if dateOnly {
			end = end.Add(24 * time.Hour)
		}
		q.End = end
	}

	if !q.End.IsZero() && !q.Start.Before(q.End) {
		return Query{}, apperr.Validation("startDate must be before endDate")
	}
	return q, nil
}

func parseDate(s string) (time.Time, bool, error) {
	var err error
	for i, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), i == 1, nil
		}
	}
	return time.Time{}, false, err
}

// BucketCounts groups the events of the trailing period window ending at
// now into ascending time buckets.
func BucketCounts(times []time.Time, period Period, now time.Time) []TimeCount {
	q := Query{Period: period, Start: now.Add(-period.Window())}
	inWindow := make([]time.Time, 0, len(times))
	for _, t := range times {
		if q.contains(t) && !t.After(now) {
			inWindow = append(inWindow, t)
		}
	}
	return bucket(inWindow, period)
}

func bucket(times []time.Time, period Period) []TimeCount {
	counts := make(map[time.Time]int64)
	for _, t := range times {
		counts[period.truncate(t)]++
	}

	series := make([]TimeCount, 0, len(counts))
	for t, c := range counts {
		series = append(series, TimeCount{Time: t, Count: c})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series
}
