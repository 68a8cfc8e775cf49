package util

import (
    "fmt"
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, a plain date, and unix seconds or milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.DateOnly, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        // 13+ digits are treated as epoch milliseconds.
        if ts >= 1e12 {
            return time.UnixMilli(ts).UTC(), true
        }
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// ParseClock parses "HH:MM" into hours and minutes.
func ParseClock(s string) (int, int, error) {
    t, err := time.Parse("15:04", s)
    if err != nil {
        return 0, 0, fmt.Errorf("parse clock %q: %w", s, err)
    }
    return t.Hour(), t.Minute(), nil
}

// AtClock returns the instant on day's calendar date (in loc) at hh:mm.
func AtClock(day time.Time, hh, mm int, loc *time.Location) time.Time {
    d := day.In(loc)
    return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, loc)
}
