// Package tz translates between the three datetime representations the
// scheduling engine needs: an absolute instant, a local wall-clock datetime
// in a given IANA zone, and a "naive" datetime whose numeric components are
// wall-clock values handled as if they were already absolute. The recurrence
// expander (internal/recurrence) operates entirely in the naive
// representation; the store and HTTP API exchange absolute instants as
// ISO-8601 with an explicit offset.
package tz

import (
	"fmt"
	"time"

	// Blank import pulls in the compiled IANA zoneinfo database so
	// LoadLocation resolves zones like "America/New_York" even on a host
	// without a system zoneinfo directory.
	_ "time/tzdata"
)

const wallClockLayout = "2006-01-02T15:04:05"

// LoadZone resolves an IANA zone name, e.g. "America/New_York".
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: unknown zone %q: %w", name, err)
	}
	return loc, nil
}

// ParseLocal parses s as a datetime. If s carries a "Z" suffix or an explicit
// numeric offset, it is parsed as an absolute instant. Otherwise its
// YYYY-MM-DDTHH:MM:SS components are interpreted as wall-clock time in zone.
func ParseLocal(s string, zone *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(wallClockLayout, s, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("tz: unparseable datetime %q: %w", s, err)
	}
	return t, nil
}

// AbsoluteToNaive returns a value whose numeric components equal the
// wall-clock representation of instant in zone, but which itself carries no
// zone information (it is fixed at UTC so callers can do naive arithmetic on
// it without the zone's offset interfering).
func AbsoluteToNaive(instant time.Time, zone *time.Location) time.Time {
	local := instant.In(zone)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}

// NaiveToAbsolute is the inverse of AbsoluteToNaive: it takes the numeric
// wall-clock components of naive and resolves them as a local time in zone.
//
// On a backward (fall-back) DST transition, a wall-clock time is ambiguous
// between two instants; this function picks the earlier of the two, matching
// Go's default time.Date resolution for such an input. This choice is
// deliberate and documented here, not an accident of platform behavior.
//
// On a forward (spring-forward) DST transition, a wall-clock time inside the
// gap does not exist; it is read with the offset in effect before the gap,
// which moves it forward by the gap's length (02:30 in a one-hour gap
// becomes 03:30).
func NaiveToAbsolute(naive time.Time, zone *time.Location) time.Time {
	t := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), zone)
	if t.Hour() != naive.Hour() || t.Minute() != naive.Minute() {
		// time.Date resolved a gap time to an instant before the gap, whose
		// offset is the pre-gap one.
		_, offset := t.Zone()
		wall := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), time.UTC)
		t = wall.Add(-time.Duration(offset) * time.Second).In(zone)
	}
	return t
}

// FormatLocalDate renders instant's local date in zone as YYYY-MM-DD.
func FormatLocalDate(instant time.Time, zone *time.Location) string {
	return instant.In(zone).Format("2006-01-02")
}

// FormatLocalTime renders instant's local time in zone using the provided
// reference-time layout (e.g. "15:04").
func FormatLocalTime(instant time.Time, zone *time.Location, layout string) string {
	return instant.In(zone).Format(layout)
}

// ParseLocalDate parses a YYYY-MM-DD date string as midnight wall-clock in
// zone.
func ParseLocalDate(s string, zone *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("tz: unparseable date %q: %w", s, err)
	}
	return t, nil
}
