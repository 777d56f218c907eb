/*
civil.go - Business-date normalization for a fixed operating region

PURPOSE:
  The platform operates in a single fixed region. Every "day" in the
  product (schedules, advances, reports) is a civil calendar date in that
  region, while clock events are stored as UTC instants. This file is the
  ONE place that converts between the two.

KEY CONCEPTS:
  - BusinessDate: a calendar date with no time-of-day
  - TimeOfDay:    minutes since local midnight (schedule slot times)
  - Region:       a fixed IANA zone; offsets are resolved per-date, never
                  assumed constant (daylight-saving shifts the offset)

CONTRACT:
  halfOpenUTCRange(d, d) contains every instant whose business date is d
  and excludes every instant whose business date is the next day. Any
  other component doing its own offset math is a defect.

SEE ALSO:
  - types.go:   row types carrying BusinessDate fields
  - aggregate.go: window partitioning built on these ranges
*/
package engine

import (
	"fmt"
	"regexp"
	"time"
)

// =============================================================================
// BUSINESS DATE
// =============================================================================

// BusinessDate is a calendar date in the operating region, independent of
// any UTC instant. Always derive one from an instant via Region; never
// parse instants ad hoc elsewhere.
type BusinessDate struct {
	Year  int
	Month time.Month
	Day   int
}

var businessDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseBusinessDate parses a strict YYYY-MM-DD string.
// Malformed input is an InvalidDateFormat error, not a silent fallback.
func ParseBusinessDate(s string) (BusinessDate, error) {
	if !businessDatePattern.MatchString(s) {
		return BusinessDate{}, &DateFormatError{Input: s}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return BusinessDate{}, &DateFormatError{Input: s}
	}
	return BusinessDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// NewBusinessDate builds a date, normalizing overflow the way time.Date
// does (Feb 30 becomes Mar 1 or 2).
func NewBusinessDate(year int, month time.Month, day int) BusinessDate {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return BusinessDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Next returns the calendar day after d, independent of offset.
func (d BusinessDate) Next() BusinessDate {
	return NewBusinessDate(d.Year, d.Month, d.Day+1)
}

func (d BusinessDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d BusinessDate) IsZero() bool { return d == BusinessDate{} }

// Compare returns -1, 0, or +1 ordering d against other.
func (d BusinessDate) Compare(other BusinessDate) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

func (d BusinessDate) Before(other BusinessDate) bool { return d.Compare(other) < 0 }
func (d BusinessDate) After(other BusinessDate) bool  { return d.Compare(other) > 0 }
func (d BusinessDate) Equal(other BusinessDate) bool  { return d.Compare(other) == 0 }

// InRange reports from <= d <= to.
func (d BusinessDate) InRange(from, to BusinessDate) bool {
	return !d.Before(from) && !d.After(to)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// =============================================================================
// TIME OF DAY
// =============================================================================

// TimeOfDay is minutes since local midnight, 0..1439. Schedule slots carry
// these rather than instants because a published slot is a civil-time
// promise ("open at 8"), not a UTC one.
type TimeOfDay int

var timeOfDayPattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)

// ParseTimeOfDay parses a strict HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &DateFormatError{Input: s}
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, &DateFormatError{Input: s}
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MinutesBetweenTimesOfDay returns the slot length from start to end.
// End before start means an overnight wrap of +24h; a zero-length slot
// stays zero.
func MinutesBetweenTimesOfDay(start, end TimeOfDay) int {
	minutes := int(end) - int(start)
	if minutes < 0 {
		minutes += 24 * 60
	}
	return minutes
}

// =============================================================================
// REGION - the fixed operating zone
// =============================================================================

// Region is the single fixed operating region. The offset is resolved
// per-date from the IANA zone database, not held constant: daylight-saving
// transitions change it.
type Region struct {
	loc *time.Location
}

// NewRegion resolves a fixed IANA zone name, e.g. "America/Chicago".
func NewRegion(name string) (Region, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Region{}, fmt.Errorf("load region %q: %w", name, err)
	}
	return Region{loc: loc}, nil
}

// MustRegion is NewRegion for tests and fixed wiring.
func MustRegion(name string) Region {
	r, err := NewRegion(name)
	if err != nil {
		panic(err)
	}
	return r
}

// Location exposes the underlying zone for callers that build local
// instants (e.g. schedule slot instants in the shell).
func (r Region) Location() *time.Location { return r.loc }

// BusinessDateOf projects an instant into the region and keeps only the
// calendar date.
func (r Region) BusinessDateOf(instant time.Time) BusinessDate {
	local := instant.In(r.loc)
	return BusinessDate{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// StartOfBusinessDateUTC returns the UTC instant of local midnight on d.
// time.Date resolves the offset in effect on that specific date.
func (r Region) StartOfBusinessDateUTC(d BusinessDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, r.loc).UTC()
}

// HalfOpenUTCRange returns [from 00:00 local, toInclusive+1day 00:00 local)
// as UTC instants, usable directly in instant-range queries. This is the
// only sanctioned way to build a date range over instants.
func (r Region) HalfOpenUTCRange(from, toInclusive BusinessDate) (start, endExclusive time.Time) {
	return r.StartOfBusinessDateUTC(from), r.StartOfBusinessDateUTC(toInclusive.Next())
}
