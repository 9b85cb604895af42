package provider

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/njoerd114/holidaysync/internal/model"
)

// ICalAdapter reads holidays from an iCalendar feed, such as the public
// holiday calendars published by calendar services. Every VEVENT whose start
// date falls in the target year becomes a holiday titled by its SUMMARY.
type ICalAdapter struct {
	http *httpClient
}

// Fetch implements [Adapter].
func (a *ICalAdapter) Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	endpoint, err := expandEndpoint(cfg, year)
	if err != nil {
		return Result{}, err
	}

	body, err := a.http.get(ctx, endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", redactKey(endpoint), err)
	}

	cal, err := ical.NewDecoder(bytes.NewReader(body)).Decode()
	if err != nil {
		return Result{}, fmt.Errorf("parse calendar: %w", err)
	}

	var out []model.NormalizedHoliday
	for _, ev := range cal.Events() {
		summary := ev.Props.Get(ical.PropSummary)
		start := ev.Props.Get(ical.PropDateTimeStart)
		if summary == nil || start == nil || strings.TrimSpace(summary.Value) == "" {
			continue
		}
		date, ok := icalDate(start)
		if !ok || !strings.HasPrefix(date, fmt.Sprintf("%04d-", year)) {
			continue
		}
		out = append(out, model.NormalizedHoliday{Title: strings.TrimSpace(summary.Value), Date: date})
	}
	return Result{Holidays: out}, nil
}

// icalDate returns the calendar date of a DTSTART property. All-day events
// carry a bare DATE ("20250704"); timed events are taken in their own zone.
func icalDate(prop *ical.Prop) (string, bool) {
	if t, err := prop.DateTime(time.UTC); err == nil {
		return t.Format(model.DateLayout), true
	}
	v := strings.TrimSpace(prop.Value)
	if len(v) < 8 {
		return "", false
	}
	t, err := time.Parse("20060102", v[:8])
	if err != nil {
		return "", false
	}
	return t.Format(model.DateLayout), true
}
