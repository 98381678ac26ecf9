package period

import (
	"errors"
	"math"
	"time"
)

// Cadence is how often a goal recurs.
type Cadence string

const (
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
	Yearly  Cadence = "yearly"
)

// Metric is how progress toward a goal is measured.
type Metric string

const (
	Binary   Metric = "binary"
	Numeric  Metric = "numeric"
	Duration Metric = "duration"
	Journal  Metric = "journal"
)

var (
	ErrInvalidCadence = errors.New("invalid cadence")
	ErrInvalidMetric  = errors.New("invalid metric type")
	ErrMissingTarget  = errors.New("numeric and duration goals require a target value")
)

// ParseCadence validates a cadence string coming from goal configuration.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case Daily, Weekly, Monthly, Yearly:
		return Cadence(s), nil
	}
	return "", ErrInvalidCadence
}

// ParseMetric validates a metric type string coming from goal configuration.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Binary, Numeric, Duration, Journal:
		return Metric(s), nil
	}
	return "", ErrInvalidMetric
}

// Day normalizes a timestamp to its calendar date (UTC midnight). All period
// keys are stored this way so two logs on the same local day compare equal.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Resolve returns the canonical period start for a goal's cadence and the
// user's local calendar date. The caller is responsible for timezone
// adjustment — this is pure calendar math, which sidesteps DST edge cases.
//
// daily   → the date itself
// weekly  → the Monday on or before the date (ISO week)
// monthly → the first of the month
// yearly  → January 1st
//
// An unrecognized cadence falls back to the unmodified date. Goal creation
// validates cadences with ParseCadence, so this path only fires on data that
// predates validation; returning the day keeps it deterministic rather than
// silently wrong.
func Resolve(c Cadence, localDate time.Time) time.Time {
	d := Day(localDate)
	switch c {
	case Daily:
		return d
	case Weekly:
		iso := int(d.Weekday())
		if iso == 0 {
			iso = 7 // Sunday
		}
		return d.AddDate(0, 0, -(iso - 1))
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

// Next returns the start of the period following key. Used by the report
// aggregator to enumerate period keys over a range.
func Next(c Cadence, key time.Time) time.Time {
	switch c {
	case Weekly:
		return key.AddDate(0, 0, 7)
	case Monthly:
		return key.AddDate(0, 1, 0)
	case Yearly:
		return key.AddDate(1, 0, 0)
	}
	return key.AddDate(0, 0, 1)
}

// ActiveOn reports whether a daily goal's active-days bitmask covers the
// given date. Bit 0 is Sunday, matching the day-of-week selector in the
// client. A zero mask means every day. Rest days only affect presentation —
// Resolve ignores the mask entirely, so a log on a rest day still lands in
// that day's period.
func ActiveOn(mask int, localDate time.Time) bool {
	if mask == 0 {
		return true
	}
	return mask&(1<<int(localDate.Weekday())) != 0
}

// Evaluate decides whether a period is complete and what percentage to show.
//
// binary/journal: complete iff anything was logged; percent is nil since a
// progress bar is meaningless for them. numeric/duration: complete iff the
// accumulated value reached the target; percent is clamped to [0, 100] for
// display while callers report the raw accumulated value uncapped alongside.
func Evaluate(m Metric, accumulated float64, target *float64) (bool, *int, error) {
	switch m {
	case Binary, Journal:
		return accumulated > 0, nil, nil
	case Numeric, Duration:
		if target == nil || *target <= 0 {
			return false, nil, ErrMissingTarget
		}
		pct := int(math.Round(accumulated / *target * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return accumulated >= *target, &pct, nil
	}
	return false, nil, ErrInvalidMetric
}
