package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/njoerd114/holidaysync/internal/model"
	"github.com/njoerd114/holidaysync/internal/provider"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- Mock Holiday Store --------------------------------------------------------

type mockHolidays struct {
	mu      sync.Mutex
	records []*model.HolidayRecord
	nextID  int

	// failCreate makes CreateHoliday fail for this title.
	failCreate string
}

func newMockHolidays(records ...*model.HolidayRecord) *mockHolidays {
	m := &mockHolidays{}
	for _, r := range records {
		m.seed(r)
	}
	return m
}

func (m *mockHolidays) seed(r *model.HolidayRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *r
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("h-%d", m.nextID)
	}
	m.records = append(m.records, &cp)
}

func (m *mockHolidays) FindHoliday(_ context.Context, title, date, source string) (*model.HolidayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Title == title && r.Date == date && r.Source == source {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockHolidays) FindHolidayByTitleDate(_ context.Context, title, date string) (*model.HolidayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Title == title && r.Date == date {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockHolidays) CreateHoliday(_ context.Context, h *model.HolidayRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != "" && h.Title == m.failCreate {
		return false, errors.New("disk full")
	}
	for _, r := range m.records {
		if r.Title == h.Title && r.Date == h.Date && r.Source == h.Source {
			return false, nil
		}
	}
	m.nextID++
	cp := *h
	cp.ID = fmt.Sprintf("h-%d", m.nextID)
	m.records = append(m.records, &cp)
	return true, nil
}

func (m *mockHolidays) ListRecurring(_ context.Context) ([]*model.HolidayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.HolidayRecord
	for _, r := range m.records {
		if r.Recurring {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockHolidays) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockHolidays) find(title, date string) *model.HolidayRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Title == title && r.Date == date {
			return r
		}
	}
	return nil
}

// --- Mock Log Store --------------------------------------------------------------

type mockLogs struct {
	mu      sync.Mutex
	entries []*model.SyncLogEntry
	limits  []int
}

func (m *mockLogs) AppendSyncLog(_ context.Context, e *model.SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	cp.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockLogs) RecentSyncLogs(_ context.Context, limit int) ([]*model.SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, limit)
	var out []*model.SyncLogEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockLogs) all() []*model.SyncLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.SyncLogEntry(nil), m.entries...)
}

// --- Mock Config Source ----------------------------------------------------------

type mockConfigs struct {
	list []model.ProviderConfig
	err  error
}

func (m *mockConfigs) Enabled(_ context.Context) ([]model.ProviderConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.ProviderConfig
	for _, p := range m.list {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Mock Adapters ---------------------------------------------------------------

type mockAdapters struct {
	mu       sync.Mutex
	adapters map[model.ProviderType]provider.Adapter
	calls    map[string]int // provider id → Fetch calls
}

func newMockAdapters() *mockAdapters {
	return &mockAdapters{
		adapters: make(map[model.ProviderType]provider.Adapter),
		calls:    make(map[string]int),
	}
}

// set registers a static adapter for t returning res and err.
func (m *mockAdapters) set(t model.ProviderType, res provider.Result, err error) {
	m.adapters[t] = provider.AdapterFunc(func(_ context.Context, cfg model.ProviderConfig, _ int) (provider.Result, error) {
		m.mu.Lock()
		m.calls[cfg.ID]++
		m.mu.Unlock()
		return res, err
	})
}

func (m *mockAdapters) Lookup(t model.ProviderType) (provider.Adapter, error) {
	a, ok := m.adapters[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", provider.ErrUnsupportedType, t)
	}
	return a, nil
}

func (m *mockAdapters) callCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

// --- Mock Provider Seeder --------------------------------------------------------

type mockSeeder struct {
	list  []model.ProviderConfig
	saved bool
}

func (m *mockSeeder) Exists(_ context.Context) (bool, error) { return m.saved, nil }

func (m *mockSeeder) Save(_ context.Context, list []model.ProviderConfig) error {
	m.list = append([]model.ProviderConfig(nil), list...)
	m.saved = true
	return nil
}

// --- Helpers ---------------------------------------------------------------------

func providerCfg(id string, t model.ProviderType, category model.Category) model.ProviderConfig {
	return model.ProviderConfig{ID: id, Name: id, Type: t, Country: "US", Category: category, Enabled: true}
}

func holidays(pairs ...string) []model.NormalizedHoliday {
	out := make([]model.NormalizedHoliday, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.NormalizedHoliday{Title: pairs[i], Date: pairs[i+1]})
	}
	return out
}
