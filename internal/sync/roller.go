package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/njoerd114/holidaysync/internal/model"
)

// Roller copies recurring holidays into a target year.
type Roller struct {
	store HolidayStore
	log   *slog.Logger
}

// NewRoller creates a Roller backed by store.
func NewRoller(store HolidayStore, logger *slog.Logger) *Roller {
	return &Roller{store: store, log: logger}
}

// Roll creates, for every recurring record, a copy with the same month and
// day in year. A copy is skipped when any record with the same title and
// date already exists. Copies keep category, color, source and visibility
// and are themselves recurring.
//
// Feb 29 templates are skipped for years without a Feb 29. Roll continues
// past individual failures and returns the number created together with
// the first error encountered.
func (r *Roller) Roll(ctx context.Context, year int) (int, error) {
	if !model.ValidYear(year) {
		return 0, fmt.Errorf("rolling into %d: %w", year, model.ErrYearOutOfRange)
	}
	templates, err := r.store.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing recurring holidays: %w", err)
	}

	created := 0
	var firstErr error
	for _, tmpl := range templates {
		ok, err := r.rollOne(ctx, tmpl, year)
		if err != nil {
			r.log.Error("rolling recurring holiday", "title", tmpl.Title, "date", tmpl.Date, "year", year, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			created++
		}
	}
	return created, firstErr
}

func (r *Roller) rollOne(ctx context.Context, tmpl *model.HolidayRecord, year int) (bool, error) {
	date, err := model.ReplaceYear(tmpl.Date, year)
	if errors.Is(err, model.ErrLeapDay) {
		r.log.Debug("leap day has no date in target year, skipping", "title", tmpl.Title, "year", year)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	existing, err := r.store.FindHolidayByTitleDate(ctx, tmpl.Title, date)
	if err != nil {
		return false, fmt.Errorf("looking up %q on %s: %w", tmpl.Title, date, err)
	}
	if existing != nil {
		return false, nil
	}

	rec := &model.HolidayRecord{
		Title:     tmpl.Title,
		Date:      date,
		Category:  tmpl.Category,
		Color:     tmpl.Color,
		Source:    tmpl.Source,
		Visible:   tmpl.Visible,
		Recurring: true,
	}
	created, err := r.store.CreateHoliday(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("creating %q on %s: %w", tmpl.Title, date, err)
	}
	if created {
		r.log.Debug("rolled recurring holiday", "title", tmpl.Title, "from", tmpl.Date, "to", date)
	}
	return created, nil
}
