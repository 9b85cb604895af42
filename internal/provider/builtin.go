package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/njoerd114/holidaysync/internal/model"
)

// fixedDate is a holiday on the same month and day every year.
type fixedDate struct {
	Month time.Month
	Day   int
	Name  string
}

// floatingDate is the nth weekday of a month; N = -1 means the last one.
type floatingDate struct {
	N       int
	Weekday time.Weekday
	Month   time.Month
	Name    string
}

// US federal holidays (5 U.S.C. 6103), without observed-day shifts.
var (
	federalFixed = []fixedDate{
		{time.January, 1, "New Year's Day"},
		{time.June, 19, "Juneteenth National Independence Day"},
		{time.July, 4, "Independence Day"},
		{time.November, 11, "Veterans Day"},
		{time.December, 25, "Christmas Day"},
	}
	federalFloating = []floatingDate{
		{3, time.Monday, time.January, "Martin Luther King Jr. Day"},
		{3, time.Monday, time.February, "Washington's Birthday"},
		{-1, time.Monday, time.May, "Memorial Day"},
		{1, time.Monday, time.September, "Labor Day"},
		{2, time.Monday, time.October, "Columbus Day"},
		{4, time.Thursday, time.November, "Thanksgiving Day"},
	}
)

// BuiltinAdapter computes US federal holidays locally. It never touches the
// network, which makes it a safe default provider for a fresh install.
type BuiltinAdapter struct{}

// Fetch implements [Adapter].
func (BuiltinAdapter) Fetch(_ context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	if c := strings.ToUpper(cfg.Country); c != "" && c != "US" {
		return Result{}, fmt.Errorf("builtin provider only knows US holidays, not %q", cfg.Country)
	}
	return Result{Holidays: FederalHolidays(year)}, nil
}

// FederalHolidays returns the US federal holidays of year in date order.
func FederalHolidays(year int) []model.NormalizedHoliday {
	var dates []time.Time
	names := make(map[time.Time]string)
	for _, f := range federalFixed {
		t := time.Date(year, f.Month, f.Day, 0, 0, 0, 0, time.UTC)
		dates = append(dates, t)
		names[t] = f.Name
	}
	for _, f := range federalFloating {
		t, ok := NthWeekday(year, f.Month, f.Weekday, f.N)
		if !ok {
			continue
		}
		dates = append(dates, t)
		names[t] = f.Name
	}

	slices.SortFunc(dates, time.Time.Compare)

	out := make([]model.NormalizedHoliday, 0, len(dates))
	for _, t := range dates {
		out = append(out, model.NormalizedHoliday{Title: names[t], Date: t.Format(model.DateLayout)})
	}
	return out
}

// NthWeekday finds the nth (1-based) weekday of month, or the last one when
// n is -1. ok is false when the month has no such day.
func NthWeekday(year int, month time.Month, weekday time.Weekday, n int) (time.Time, bool) {
	if n == 0 || n < -1 {
		return time.Time{}, false
	}
	if n == -1 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		back := int(last.Weekday() - weekday)
		if back < 0 {
			back += 7
		}
		return last.AddDate(0, 0, -back), true
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(weekday - first.Weekday())
	if offset < 0 {
		offset += 7
	}
	t := first.AddDate(0, 0, offset+(n-1)*7)
	if t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
