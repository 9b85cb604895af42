package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/njoerd114/holidaysync/internal/model"
)

// Upserter creates provider holidays keyed on (title, date, source). An
// existing record is never modified, so admin edits to visibility, color
// or the recurring flag survive every re-sync.
type Upserter struct {
	store HolidayStore
	log   *slog.Logger
}

// NewUpserter creates an Upserter backed by store.
func NewUpserter(store HolidayStore, logger *slog.Logger) *Upserter {
	return &Upserter{store: store, log: logger}
}

// Upsert creates a record for h attributed to cfg and reports whether one was
// created. Candidates with an empty title or a malformed date are skipped.
func (u *Upserter) Upsert(ctx context.Context, h model.NormalizedHoliday, cfg model.ProviderConfig) (bool, error) {
	title := strings.TrimSpace(h.Title)
	if title == "" || !model.ValidDate(h.Date) {
		u.log.Debug("skipping malformed holiday", "provider", cfg.ID, "title", h.Title, "date", h.Date)
		return false, nil
	}

	existing, err := u.store.FindHoliday(ctx, title, h.Date, cfg.ID)
	if err != nil {
		return false, fmt.Errorf("looking up %q on %s: %w", title, h.Date, err)
	}
	if existing != nil {
		return false, nil
	}

	rec := &model.HolidayRecord{
		Title:     title,
		Date:      h.Date,
		Category:  cfg.Category,
		Color:     cfg.EffectiveColor(),
		Source:    cfg.ID,
		Visible:   true,
		Recurring: false,
	}
	// The store's unique key turns a concurrent insert into created == false.
	created, err := u.store.CreateHoliday(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("creating %q on %s: %w", title, h.Date, err)
	}
	if created {
		u.log.Debug("created holiday", "provider", cfg.ID, "title", title, "date", h.Date)
	}
	return created, nil
}
