// Package timeutil provides calendar-day arithmetic in a fixed reference timezone.
// Streaks, daily goals and daily activity counts are all evaluated against the
// reference zone, never against the client's local time.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// DefaultZoneName is the reference timezone used when none is configured.
const DefaultZoneName = "Asia/Almaty"

// AlmatyTZ is the Almaty timezone (UTC+5, no DST).
// Used as a fallback when the tz database is not available in the container.
var AlmatyTZ = time.FixedZone(DefaultZoneName, 5*60*60)

// LoadZone resolves a zone name. An empty name or the default name without a
// tz database resolves to AlmatyTZ.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return AlmatyTZ, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name == DefaultZoneName {
			return AlmatyTZ, nil
		}
		return nil, err
	}
	return loc, nil
}

// StartOfDay returns the start of the day (00:00:00) of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the end of the day (23:59:59.999999999) of t in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, loc)
}

// civil maps the calendar date of t in loc onto a UTC midnight so that day
// differences are unaffected by DST shifts in loc.
func civil(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from t1 to t2 in loc.
// DaysBetween(yesterday, today) == 1.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	return int(civil(t2, loc).Sub(civil(t1, loc)).Hours() / 24)
}

// AddDays moves a day start by n calendar days in loc.
func AddDays(day time.Time, n int, loc *time.Location) time.Time {
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+n, 0, 0, 0, 0, loc)
}

// LastNDays returns the day starts of the n days ending with the day of t,
// oldest first.
func LastNDays(t time.Time, n int, loc *time.Location) []time.Time {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(t, loc)
	days := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, AddDays(today, -i, loc))
	}
	return days
}
