package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/holidaysync/internal/model"
)

const (
	otelScope        = "holidaysync/sync"
	spanRun          = "sync.run"
	metricCreated    = "holidaysync.sync.holidays.created"
	metricRecurring  = "holidaysync.sync.recurring.created"
	metricProvErrors = "holidaysync.sync.provider.errors"
)

const (
	// DefaultLogLimit is used by RecentLogs when no limit is given.
	DefaultLogLimit = 20

	// MaxLogLimit caps a single RecentLogs query.
	MaxLogLimit = 500

	// RecurringSource tags sync log entries written by the recurrence roller.
	RecurringSource = "recurring"
)

// ErrSyncInProgress is returned by [Engine.Run] when another run has not
// finished yet.
var ErrSyncInProgress = errors.New("a sync is already running")

// Result summarizes one sync run.
type Result struct {
	Year int `json:"year"`

	// Total is the number of records created from provider data.
	Total int `json:"total"`

	// Recurring is the number of records created by rolling recurring
	// holidays into Year.
	Recurring int `json:"recurring"`

	// Providers maps each attempted provider id to the records it created.
	Providers map[string]int `json:"providers"`

	// Errors counts providers whose attempt failed.
	Errors int `json:"errors"`
}

// Engine is the sync orchestrator. Create one with [NewEngine]; it is safe
// for concurrent use, but runs never overlap.
type Engine struct {
	configs  ConfigSource
	adapters AdapterSource
	logs     LogStore
	upserter *Upserter
	roller   *Roller
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger

	running sync.Mutex

	// OTel instruments, always non-nil (no-op when telemetry is disabled).
	tracer        trace.Tracer
	cntCreated    metric.Int64Counter
	cntRecurring  metric.Int64Counter
	cntProvErrors metric.Int64Counter
}

// NewEngine creates an Engine. loc decides the current year when Run is
// called without one; nil means UTC.
func NewEngine(configs ConfigSource, adapters AdapterSource, holidays HolidayStore, logs LogStore, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Engine{
		configs:  configs,
		adapters: adapters,
		logs:     logs,
		upserter: NewUpserter(holidays, logger),
		roller:   NewRoller(holidays, logger),
		loc:      loc,
		now:      time.Now,
		log:      logger,

		tracer:        tracer,
		cntCreated:    mustCounter(metricCreated, "Number of holidays created from provider data"),
		cntRecurring:  mustCounter(metricRecurring, "Number of holidays created by recurrence rollover"),
		cntProvErrors: mustCounter(metricProvErrors, "Number of failed provider attempts"),
	}
}

// Run syncs every enabled provider for year, then rolls recurring holidays
// into it. year <= 0 means the current year; years past model.MaxYear are
// rejected with model.ErrYearOutOfRange.
//
// Provider failures are recorded in the sync log and counted in
// Result.Errors; they never fail the run. Run returns an error only when the
// provider configs cannot be loaded, or ErrSyncInProgress when another run is
// still active.
func (e *Engine) Run(ctx context.Context, year int) (Result, error) {
	if year <= 0 {
		year = e.now().In(e.loc).Year()
	}
	if !model.ValidYear(year) {
		return Result{}, fmt.Errorf("sync year %d: %w", year, model.ErrYearOutOfRange)
	}

	if !e.running.TryLock() {
		return Result{}, ErrSyncInProgress
	}
	defer e.running.Unlock()

	ctx, span := e.tracer.Start(ctx, spanRun, trace.WithAttributes(attribute.Int("sync.year", year)))
	defer span.End()

	res, err := e.run(ctx, year)

	span.SetAttributes(
		attribute.Int("sync.total", res.Total),
		attribute.Int("sync.recurring", res.Recurring),
		attribute.Int("sync.providers", len(res.Providers)),
		attribute.Int("sync.errors", res.Errors),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, year int) (Result, error) {
	res := Result{Year: year, Providers: make(map[string]int)}

	configs, err := e.configs.Enabled(ctx)
	if err != nil {
		return res, fmt.Errorf("loading provider configs: %w", err)
	}
	if len(configs) == 0 {
		e.log.Info("no enabled providers, nothing to sync", "year", year)
		return res, nil
	}

	e.log.Info("sync started", "year", year, "providers", len(configs))
	start := e.now()

	for _, cfg := range configs {
		created, err := e.syncProvider(ctx, cfg, year)
		res.Providers[cfg.ID] = created
		res.Total += created
		if err != nil {
			res.Errors++
			e.cntProvErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", cfg.ID)))
		}
	}
	if res.Total > 0 {
		e.cntCreated.Add(ctx, int64(res.Total))
	}

	rolled, err := e.roller.Roll(ctx, year)
	res.Recurring = rolled
	if rolled > 0 {
		e.cntRecurring.Add(ctx, int64(rolled))
	}
	if err != nil {
		e.appendLog(ctx, RecurringSource, model.SyncError, err.Error())
	}

	e.log.Info("sync finished",
		"year", year,
		"created", res.Total,
		"recurring", res.Recurring,
		"errors", res.Errors,
		"duration", e.now().Sub(start).Round(time.Millisecond),
	)
	return res, nil
}

// syncProvider fetches and upserts one provider. It writes exactly one sync
// log entry unless the adapter skipped the provider. The returned error is
// already logged; callers only count it.
func (e *Engine) syncProvider(ctx context.Context, cfg model.ProviderConfig, year int) (int, error) {
	log := e.log.With("provider", cfg.ID, "type", string(cfg.Type))

	adapter, err := e.adapters.Lookup(cfg.Type)
	if err != nil {
		log.Error("no adapter for provider", "error", err)
		e.appendLog(ctx, cfg.ID, model.SyncError, err.Error())
		return 0, err
	}

	fetched, err := adapter.Fetch(ctx, cfg, year)
	if err != nil {
		log.Error("provider fetch failed", "year", year, "error", err)
		e.appendLog(ctx, cfg.ID, model.SyncError, err.Error())
		return 0, err
	}
	if fetched.Skipped {
		log.Info("provider skipped, no API key configured")
		return 0, nil
	}

	created := 0
	for _, h := range fetched.Holidays {
		ok, err := e.upserter.Upsert(ctx, h, cfg)
		if err != nil {
			log.Error("storing holiday failed", "error", err)
			e.appendLog(ctx, cfg.ID, model.SyncError, err.Error())
			return created, err
		}
		if ok {
			created++
		}
	}

	msg := fmt.Sprintf("created %d new holiday(s) for %d", created, year)
	if fetched.Note != "" {
		msg += " (" + fetched.Note + ")"
	}
	e.appendLog(ctx, cfg.ID, model.SyncSuccess, msg)
	log.Info("provider synced", "year", year, "fetched", len(fetched.Holidays), "created", created)
	return created, nil
}

// appendLog writes a sync log entry. A failed write is logged and otherwise
// ignored so that the run continues.
func (e *Engine) appendLog(ctx context.Context, source string, status model.SyncStatus, msg string) {
	entry := &model.SyncLogEntry{Source: source, Status: status, Message: msg}
	if err := e.logs.AppendSyncLog(ctx, entry); err != nil {
		e.log.Error("writing sync log entry", "source", source, "error", err)
	}
}

// RecentLogs returns at most limit sync log entries, newest first. limit <= 0
// means DefaultLogLimit; larger values are capped at MaxLogLimit.
func (e *Engine) RecentLogs(ctx context.Context, limit int) ([]*model.SyncLogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	entries, err := e.logs.RecentSyncLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading sync logs: %w", err)
	}
	if entries == nil {
		entries = []*model.SyncLogEntry{}
	}
	return entries, nil
}
