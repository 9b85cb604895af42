package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/njoerd114/holidaysync/internal/model"
)

func TestUpsert_CreatesWithProviderAttributes(t *testing.T) {
	store := newMockHolidays()
	u := NewUpserter(store, testLogger)
	cfg := providerCfg("nager-us", model.ProviderFixedSchedule, model.CategoryFederal)

	created, err := u.Upsert(context.Background(), model.NormalizedHoliday{Title: "Independence Day", Date: "2025-07-04"}, cfg)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Fatal("created = false, want true")
	}

	got := store.find("Independence Day", "2025-07-04")
	if got == nil {
		t.Fatal("record not stored")
	}
	if got.Category != model.CategoryFederal || got.Color != "#06427F" || got.Source != "nager-us" {
		t.Errorf("record = %+v, want federal/#06427F/nager-us", got)
	}
	if !got.Visible || got.Recurring {
		t.Errorf("visible=%v recurring=%v, want true/false", got.Visible, got.Recurring)
	}
}

func TestUpsert_ExistingIsUntouched(t *testing.T) {
	store := newMockHolidays(&model.HolidayRecord{
		Title:     "Independence Day",
		Date:      "2025-07-04",
		Category:  model.CategoryFederal,
		Color:     "#123456",
		Source:    "nager-us",
		Visible:   false,
		Recurring: true,
	})
	u := NewUpserter(store, testLogger)
	cfg := providerCfg("nager-us", model.ProviderFixedSchedule, model.CategoryFun)

	created, err := u.Upsert(context.Background(), model.NormalizedHoliday{Title: "Independence Day", Date: "2025-07-04"}, cfg)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created {
		t.Error("created = true for existing key")
	}
	got := store.find("Independence Day", "2025-07-04")
	if got.Category != model.CategoryFederal || got.Color != "#123456" || got.Visible || !got.Recurring {
		t.Errorf("existing record modified: %+v", got)
	}
}

func TestUpsert_SameTitleDateOtherSourceCreates(t *testing.T) {
	store := newMockHolidays(&model.HolidayRecord{Title: "Christmas Day", Date: "2025-12-25", Source: "nager-us"})
	u := NewUpserter(store, testLogger)

	created, err := u.Upsert(context.Background(), model.NormalizedHoliday{Title: "Christmas Day", Date: "2025-12-25"},
		providerCfg("calendarific", model.ProviderKeyBased, model.CategoryFederal))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("created = false, want a second record for a different source")
	}
	if store.count() != 2 {
		t.Errorf("count = %d, want 2", store.count())
	}
}

func TestUpsert_SkipsMalformed(t *testing.T) {
	store := newMockHolidays()
	u := NewUpserter(store, testLogger)
	cfg := providerCfg("p", model.ProviderCustom, model.CategoryCompany)

	for _, h := range []model.NormalizedHoliday{
		{Title: "", Date: "2025-01-01"},
		{Title: "   ", Date: "2025-01-01"},
		{Title: "Bad", Date: "2025-13-01"},
		{Title: "Bad", Date: "01/01/2025"},
	} {
		created, err := u.Upsert(context.Background(), h, cfg)
		if err != nil || created {
			t.Errorf("Upsert(%+v) = %v, %v; want false, nil", h, created, err)
		}
	}
	if store.count() != 0 {
		t.Errorf("count = %d, want 0", store.count())
	}
}

func TestUpsert_ExplicitColorWins(t *testing.T) {
	store := newMockHolidays()
	u := NewUpserter(store, testLogger)
	cfg := providerCfg("fun", model.ProviderKeyBased, model.CategoryFun)
	cfg.Color = "#FF00FF"

	if _, err := u.Upsert(context.Background(), model.NormalizedHoliday{Title: "National Pizza Day", Date: "2025-02-09"}, cfg); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := store.find("National Pizza Day", "2025-02-09"); got.Color != "#FF00FF" || got.Category != model.CategoryFun {
		t.Errorf("record = %+v, want color #FF00FF category fun", got)
	}
}

// ---------------------------------------------------------------------------
// Roller
// ---------------------------------------------------------------------------

func TestRoll_CopiesIntoTargetYear(t *testing.T) {
	store := newMockHolidays(&model.HolidayRecord{
		Title:     "Founders Day",
		Date:      "2024-03-15",
		Category:  model.CategoryCompany,
		Color:     "#10B981",
		Source:    "custom",
		Visible:   true,
		Recurring: true,
	})
	r := NewRoller(store, testLogger)

	n, err := r.Roll(context.Background(), 2026)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if n != 1 {
		t.Fatalf("created = %d, want 1", n)
	}
	got := store.find("Founders Day", "2026-03-15")
	if got == nil {
		t.Fatal("rolled record not found")
	}
	if got.Category != model.CategoryCompany || got.Color != "#10B981" || got.Source != "custom" || !got.Visible || !got.Recurring {
		t.Errorf("rolled record = %+v", got)
	}

	// Rolling again into the same year is a no-op.
	n, err = r.Roll(context.Background(), 2026)
	if err != nil {
		t.Fatalf("second Roll: %v", err)
	}
	if n != 0 {
		t.Errorf("second Roll created %d, want 0", n)
	}
}

func TestRoll_DedupIgnoresSource(t *testing.T) {
	store := newMockHolidays(
		&model.HolidayRecord{Title: "Founders Day", Date: "2024-03-15", Source: "custom", Recurring: true},
		&model.HolidayRecord{Title: "Founders Day", Date: "2026-03-15", Source: "other"},
	)
	n, err := NewRoller(store, testLogger).Roll(context.Background(), 2026)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if n != 0 {
		t.Errorf("created = %d, want 0 (title+date already present)", n)
	}
}

func TestRoll_SameYearIsNoop(t *testing.T) {
	store := newMockHolidays(&model.HolidayRecord{Title: "Founders Day", Date: "2025-03-15", Source: "custom", Recurring: true})
	n, err := NewRoller(store, testLogger).Roll(context.Background(), 2025)
	if err != nil || n != 0 {
		t.Errorf("Roll = %d, %v; want 0, nil", n, err)
	}
	if store.count() != 1 {
		t.Errorf("count = %d, want 1", store.count())
	}
}

func TestRoll_LeapDaySkippedInCommonYear(t *testing.T) {
	store := newMockHolidays(&model.HolidayRecord{Title: "Leap Party", Date: "2024-02-29", Source: "custom", Recurring: true})
	r := NewRoller(store, testLogger)

	n, err := r.Roll(context.Background(), 2025)
	if err != nil || n != 0 {
		t.Errorf("Roll(2025) = %d, %v; want 0, nil", n, err)
	}
	n, err = r.Roll(context.Background(), 2028)
	if err != nil || n != 1 {
		t.Errorf("Roll(2028) = %d, %v; want 1, nil", n, err)
	}
	if store.find("Leap Party", "2028-02-29") == nil {
		t.Error("2028-02-29 not created")
	}
}

func TestRoll_YearOutOfRangeStoresNothing(t *testing.T) {
	store := newMockHolidays(&model.HolidayRecord{Title: "Founders Day", Date: "2024-03-15", Source: "custom", Recurring: true})

	n, err := NewRoller(store, testLogger).Roll(context.Background(), 10000)
	if !errors.Is(err, model.ErrYearOutOfRange) {
		t.Errorf("err = %v, want ErrYearOutOfRange", err)
	}
	if n != 0 || store.count() != 1 {
		t.Errorf("created = %d, records = %d; want 0, 1", n, store.count())
	}
}

func TestRoll_ContinuesPastFailures(t *testing.T) {
	store := newMockHolidays(
		&model.HolidayRecord{Title: "Broken", Date: "2024-05-01", Source: "custom", Recurring: true},
		&model.HolidayRecord{Title: "Fine", Date: "2024-06-01", Source: "custom", Recurring: true},
	)
	store.failCreate = "Broken"

	n, err := NewRoller(store, testLogger).Roll(context.Background(), 2025)
	if err == nil {
		t.Error("expected first error to be returned")
	}
	if n != 1 {
		t.Errorf("created = %d, want 1", n)
	}
	if store.find("Fine", "2025-06-01") == nil {
		t.Error("Fine not rolled after Broken failed")
	}
}
