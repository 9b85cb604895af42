package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical string form of a holiday date.
const DateLayout = "2006-01-02"

// MinYear and MaxYear bound the years a four-digit DateLayout can hold.
const (
	MinYear = 1
	MaxYear = 9999
)

// ErrLeapDay is returned by ReplaceYear when a Feb 29 date is moved into a
// year that has no Feb 29.
var ErrLeapDay = errors.New("february 29 does not exist in target year")

// ErrYearOutOfRange is returned for years outside MinYear..MaxYear.
var ErrYearOutOfRange = fmt.Errorf("year must be between %d and %d", MinYear, MaxYear)

// ValidYear reports whether year fits in a YYYY-MM-DD date.
func ValidYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// DateOnly truncates an ISO 8601 timestamp to its date part, e.g.
// "2025-07-04T00:00:00-04:00" becomes "2025-07-04". Values without a "T"
// are returned trimmed but otherwise unchanged.
func DateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// FormatDate builds a zero-padded YYYY-MM-DD string.
func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// SplitDate returns the numeric year, month and day of a YYYY-MM-DD string.
func SplitDate(s string) (year, month, day int, err error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Year(), int(t.Month()), t.Day(), nil
}

// ParseSlashDate converts a US-style "M/D/YYYY" date (month and day may or
// may not be zero-padded) to YYYY-MM-DD.
func ParseSlashDate(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid M/D/YYYY date %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("invalid M/D/YYYY date %q: %w", s, err)
		}
		nums[i] = n
	}
	out := FormatDate(nums[2], nums[0], nums[1])
	if !ValidDate(out) {
		return "", fmt.Errorf("invalid M/D/YYYY date %q", s)
	}
	return out, nil
}

// ReplaceYear keeps the month and day of date and swaps in year. A leap day
// moved into a non-leap year yields ErrLeapDay rather than rolling over
// into March.
func ReplaceYear(date string, year int) (string, error) {
	_, m, d, err := SplitDate(date)
	if err != nil {
		return "", err
	}
	if !ValidYear(year) {
		return "", fmt.Errorf("%s -> %d: %w", date, year, ErrYearOutOfRange)
	}
	if m == 2 && d == 29 && !IsLeapYear(year) {
		return "", fmt.Errorf("%s -> %d: %w", date, year, ErrLeapDay)
	}
	out := FormatDate(year, m, d)
	if !ValidDate(out) {
		return "", fmt.Errorf("%s -> %d: invalid date %q", date, year, out)
	}
	return out, nil
}

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}
