package timex

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// StoredLayout is the two-digit-year month/day/year form dates are stored in.
	StoredLayout = "01/02/06"
	// ISOLayout is the calendar form external callers use.
	ISOLayout = "2006-01-02"

	// MinStoredYear and MaxStoredYear bound the years the two-digit stored
	// form reads back unchanged.
	MinStoredYear = 1969
	MaxStoredYear = 2068
)

// ErrYearOutOfRange is returned for ISO dates the stored form cannot hold.
var ErrYearOutOfRange = errors.New("year outside the stored date range")

// Today returns the calendar day of now in now's location, at midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// ParseStored parses a stored date. The result is a midnight in loc.
func ParseStored(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(StoredLayout, strings.TrimSpace(s), loc)
}

// FormatStored renders t in the stored form.
func FormatStored(t time.Time) string {
	return t.Format(StoredLayout)
}

// ParseISO parses an ISO calendar date. Years outside
// MinStoredYear..MaxStoredYear are rejected with ErrYearOutOfRange.
func ParseISO(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(ISOLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, err
	}
	if y := t.Year(); y < MinStoredYear || y > MaxStoredYear {
		return time.Time{}, fmt.Errorf("%w: %d", ErrYearOutOfRange, y)
	}
	return t, nil
}

// ISOToStored converts "2025-01-01" into "01/01/25".
func ISOToStored(s string) (string, error) {
	t, err := ParseISO(s, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatStored(t), nil
}

// StoredToISO converts "01/01/25" into "2025-01-01".
func StoredToISO(s string) (string, error) {
	t, err := ParseStored(s, time.UTC)
	if err != nil {
		return "", err
	}
	return t.Format(ISOLayout), nil
}

// NormalizeDate accepts a date in either ISO or stored form and returns the
// stored form. Empty input yields empty output.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if strings.Contains(s, "-") {
		return ISOToStored(s)
	}
	t, err := ParseStored(s, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatStored(t), nil
}

// AddDays returns the stored form of today plus n calendar days.
func AddDays(today time.Time, n int) string {
	return FormatStored(Today(today).AddDate(0, 0, n))
}

// DaysBetween counts calendar days from a to b. Both are reduced to their
// calendar date first, so DST shifts do not skew the count.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// RemainingDays returns how many entitlement days are left until expire,
// measured from today.
//
// An unparsable expire, or one that falls on today or earlier, yields
// fallback. Otherwise the result is never below 1.
func RemainingDays(expire string, today time.Time, fallback int) int {
	t, err := ParseStored(expire, today.Location())
	if err != nil {
		return fallback
	}
	days := DaysBetween(today, t)
	if days <= 0 {
		return fallback
	}
	return max(1, days)
}

// NotBefore reports whether expire is on or after register. Empty values
// are never in conflict.
func NotBefore(register, expire string) bool {
	if register == "" || expire == "" {
		return true
	}
	r, err := ParseStored(register, time.UTC)
	if err != nil {
		return true
	}
	e, err := ParseStored(expire, time.UTC)
	if err != nil {
		return true
	}
	return !e.Before(r)
}
