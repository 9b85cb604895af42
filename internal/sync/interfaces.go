// Package sync implements the holiday sync engine. For a target year it
// fetches every enabled provider through its adapter, upserts the normalized
// holidays, rolls recurring holidays forward, and records one sync log entry
// per provider attempt.
//
// The package contains these components:
//
//   - [Upserter] creates a holiday unless its (title, date, source) key
//     already exists.
//   - [Roller] copies recurring holidays into a target year.
//   - [Engine] is the single sync entry point used by both the scheduler
//     and manual triggers.
//   - [Scheduler] runs the engine once a day.
//   - [Bootstrap] seeds a default provider list on first run.
package sync

import (
	"context"

	"github.com/njoerd114/holidaysync/internal/model"
	"github.com/njoerd114/holidaysync/internal/provider"
)

// HolidayStore provides access to holiday records.
// Implemented by [state.Store].
type HolidayStore interface {
	FindHoliday(ctx context.Context, title, date, source string) (*model.HolidayRecord, error)
	FindHolidayByTitleDate(ctx context.Context, title, date string) (*model.HolidayRecord, error)
	CreateHoliday(ctx context.Context, h *model.HolidayRecord) (bool, error)
	ListRecurring(ctx context.Context) ([]*model.HolidayRecord, error)
}

// LogStore provides access to the append-only sync log.
// Implemented by [state.Store].
type LogStore interface {
	AppendSyncLog(ctx context.Context, e *model.SyncLogEntry) error
	RecentSyncLogs(ctx context.Context, limit int) ([]*model.SyncLogEntry, error)
}

// ConfigSource returns the enabled provider configs in stored order.
// Implemented by [providerstore.Store].
type ConfigSource interface {
	Enabled(ctx context.Context) ([]model.ProviderConfig, error)
}

// AdapterSource resolves the adapter for a provider type.
// Implemented by [provider.Registry].
type AdapterSource interface {
	Lookup(t model.ProviderType) (provider.Adapter, error)
}

// ProviderSeeder is the part of the provider config store used by
// [Bootstrap]. Implemented by [providerstore.Store].
type ProviderSeeder interface {
	Exists(ctx context.Context) (bool, error)
	Save(ctx context.Context, list []model.ProviderConfig) error
}
