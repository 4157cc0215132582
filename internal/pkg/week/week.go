// Package week holds the Monday-anchored calendar arithmetic used by
// templates and weekly bags. Weeks are identified by the ISO date of their
// Monday ("2024-01-15").
package week

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWeek is returned for keys that are not a Monday date
var ErrInvalidWeek = errors.New("week must be a Monday date in YYYY-MM-DD form")

// DateLayout is the storage format of week keys
const DateLayout = "2006-01-02"

// Start returns midnight of the Monday on or before t, in t's location
func Start(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(midnight.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return midnight.AddDate(0, 0, -offset)
}

// Key returns the week key for t
func Key(t time.Time) string {
	return Start(t).Format(DateLayout)
}

// Parse validates a week key and returns its Monday in loc.
// Keys that are valid dates but not Mondays are rejected.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeek, key)
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("%w: %q is not a Monday", ErrInvalidWeek, key)
	}
	return t, nil
}

// End returns the Sunday key of the week starting at start
func End(start time.Time) string {
	return start.AddDate(0, 0, 6).Format(DateLayout)
}

// Previous returns the key of the week before the given key
func Previous(key string) (string, error) {
	t, err := Parse(key, time.UTC)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -7).Format(DateLayout), nil
}

// Cutoff returns the lock time for a week: its Monday midnight plus offset
func Cutoff(start time.Time, offset time.Duration) time.Time {
	return start.Add(offset)
}
