// holidaysync keeps a company holiday calendar filled from external holiday
// providers and rolls recurring company days into each new year.
//
// Usage:
//
//	holidaysync setup                         # interactive first-run wizard
//	holidaysync serve [--config <path>]       # HTTP API plus nightly sync
//	holidaysync sync-once [--year N]          # single sync pass then exit
//	holidaysync logs [--limit N]              # recent sync log entries
//	holidaysync providers                     # list configured providers
//	holidaysync status                        # show config and database state
//	holidaysync version                       # print version
//
// Every command except version accepts --config and --verbose.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/njoerd114/holidaysync/internal/api"
	"github.com/njoerd114/holidaysync/internal/config"
	"github.com/njoerd114/holidaysync/internal/model"
	"github.com/njoerd114/holidaysync/internal/provider"
	"github.com/njoerd114/holidaysync/internal/providerstore"
	"github.com/njoerd114/holidaysync/internal/setup"
	"github.com/njoerd114/holidaysync/internal/state"
	syncp "github.com/njoerd114/holidaysync/internal/sync"
	"github.com/njoerd114/holidaysync/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the requested subcommand.
func run() error {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "setup":
		return runSetup(args)
	case "serve":
		return runServe(args)
	case "sync-once":
		return runSyncOnce(args)
	case "logs":
		return runLogs(args)
	case "providers":
		return runProviders(args)
	case "status":
		return runStatus(args)
	case "version":
		fmt.Println("holidaysync", version)
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	}
	return fmt.Errorf("unknown command %q, run 'holidaysync help' for usage", cmd)
}

func printUsage() {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "holidaysync: company holiday calendar sync")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  holidaysync setup                  Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  holidaysync serve                  Run the HTTP API and nightly sync")
	fmt.Fprintln(os.Stderr, "  holidaysync sync-once [--year N]   Single sync pass then exit")
	fmt.Fprintln(os.Stderr, "  holidaysync logs [--limit N]       Show recent sync log entries")
	fmt.Fprintln(os.Stderr, "  holidaysync providers              List configured providers")
	fmt.Fprintln(os.Stderr, "  holidaysync status                 Show config and database state")
	fmt.Fprintln(os.Stderr, "  holidaysync version                Print version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags: --config <path> (default "+cfgPath+"), --verbose")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "No config file found. Run 'holidaysync setup' to get started.")
	}
}

// --- shared wiring -----------------------------------------------------------

// commonFlags registers --config and --verbose on fs.
func commonFlags(fs *flag.FlagSet) (cfgPath *string, verbose *bool) {
	defaultCfg, _ := config.DefaultPath()
	cfgPath = fs.String("config", defaultCfg, "path to config.yaml")
	verbose = fs.Bool("verbose", false, "enable debug logging")
	return cfgPath, verbose
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// app holds the components every non-interactive command needs.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	store     *state.Store
	providers *providerstore.Store
	engine    *syncp.Engine
}

// openApp loads the config, opens the database and builds the sync engine.
// The returned close function must be called on exit.
func openApp(cfgPath string, verbose bool) (*app, func(), error) {
	logger := newLogger(verbose)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	logger.Debug("config loaded", "path", cfgPath, "sync_hour", cfg.Hour(), "timezone", cfg.Timezone)

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = state.DefaultDBPath(); err != nil {
			return nil, nil, fmt.Errorf("resolving state DB path: %w", err)
		}
	}
	store, err := state.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state DB at %q: %w", dbPath, err)
	}
	logger.Debug("state DB opened", "path", dbPath)

	providers := providerstore.New(store)
	registry := provider.NewRegistry(
		&http.Client{Timeout: cfg.HTTPTimeout},
		logger,
		provider.WithUserAgent("holidaysync/"+version),
	)
	engine := syncp.NewEngine(providers, registry, store, store, cfg.Location(), logger)

	closeFn := func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("closing state DB", "error", closeErr)
		}
	}
	return &app{cfg: cfg, log: logger, store: store, providers: providers, engine: engine}, closeFn, nil
}

// setupTelemetry installs OTel providers when the config has a telemetry
// block. The returned function flushes them.
func setupTelemetry(cfg *config.Config, logger *slog.Logger) func() {
	if cfg.Telemetry == nil {
		return func() {}
	}
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		Headers:        cfg.Telemetry.Headers,
	})
	if err != nil {
		logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		return func() {}
	}
	logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}
}

// --- subcommands -------------------------------------------------------------

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return setup.NewWizard(os.Stdin, os.Stdout, *cfgPath, logger).Run(ctx)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, closeApp, err := openApp(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer closeApp()
	if err := a.cfg.RequireServe(); err != nil {
		return err
	}
	defer setupTelemetry(a.cfg, a.log)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- First-run bootstrap -------------------------------------------------

	if _, err := syncp.NewBootstrap(a.providers, a.log, nil, nil).Run(ctx); err != nil {
		return fmt.Errorf("first-run bootstrap: %w", err)
	}

	// --- HTTP API ------------------------------------------------------------

	gin.SetMode(gin.ReleaseMode)
	srv, err := api.New(a.engine, a.providers, a.store, api.Options{
		JWTSecret:    a.cfg.JWTSecret,
		DefaultLimit: a.cfg.DefaultLimit,
	}, a.log)
	if err != nil {
		return err
	}

	// --- Nightly scheduler ---------------------------------------------------

	sched := syncp.NewScheduler(a.engine, a.cfg.Hour(), a.cfg.Location(), a.log)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("scheduler stopped", "error", err)
		}
	}()
	a.log.Info("nightly sync scheduled", "next", sched.NextRun(time.Now()))

	err = srv.ListenAndServe(ctx, a.cfg.ListenAddr)
	stop()
	<-schedDone
	if err != nil {
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}

func runSyncOnce(args []string) error {
	fs := flag.NewFlagSet("sync-once", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	year := fs.Int("year", 0, "year to sync (default: current year in the configured time zone)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *year < 0 || *year > model.MaxYear {
		return fmt.Errorf("--year: %w", model.ErrYearOutOfRange)
	}

	a, closeApp, err := openApp(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer closeApp()
	defer setupTelemetry(a.cfg, a.log)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if _, err := syncp.NewBootstrap(a.providers, a.log, os.Stdin, os.Stdout).Run(ctx); err != nil {
		return fmt.Errorf("first-run bootstrap: %w", err)
	}

	a.log.Info("running single sync pass", "year", *year)
	res, err := a.engine.Run(ctx, *year)
	if err != nil {
		return err
	}
	a.log.Info("sync complete",
		"year", res.Year,
		"created", res.Total,
		"recurring", res.Recurring,
		"providers", len(res.Providers),
		"errors", res.Errors,
	)
	printSyncResult(os.Stdout, res)
	return nil
}

// printSyncResult writes one line per provider, sorted by id, then the
// recurring rollover count.
func printSyncResult(w io.Writer, res syncp.Result) {
	for _, id := range slices.Sorted(maps.Keys(res.Providers)) {
		fmt.Fprintf(w, "  %-24s %d new\n", id, res.Providers[id])
	}
	if res.Recurring > 0 {
		fmt.Fprintf(w, "  %-24s %d new\n", syncp.RecurringSource, res.Recurring)
	}
}

func runLogs(args []string) error {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	limit := fs.Int("limit", 0, "number of entries (default: default_limit from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, closeApp, err := openApp(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer closeApp()

	n := *limit
	if n <= 0 {
		n = a.cfg.DefaultLimit
	}
	entries, err := a.engine.RecentLogs(context.Background(), n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No sync log entries yet.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSOURCE\tSTATUS\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.SyncedAt.In(a.cfg.Location()).Format(time.DateTime), e.Source, e.Status, e.Message)
	}
	return tw.Flush()
}

func runProviders(args []string) error {
	fs := flag.NewFlagSet("providers", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, closeApp, err := openApp(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer closeApp()

	list, err := a.providers.Load(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No providers configured. Run 'holidaysync setup' to add one.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCATEGORY\tCOUNTRY\tENABLED\tAPI KEY")
	for _, p := range list {
		p = p.Redacted()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", p.ID, p.Type, p.Category, p.Country, p.Enabled, p.APIKey)
	}
	return tw.Flush()
}

// runStatus prints the config and database state without failing on a
// missing or invalid config.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath, _ := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("holidaysync status")
	fmt.Println("──────────────────")

	cfg, loadErr := config.Load(*cfgPath)
	switch {
	case loadErr == nil:
		fmt.Printf("  Config:    %s ✓\n", *cfgPath)
		fmt.Printf("  Listen:    %s\n", cfg.ListenAddr)
		fmt.Printf("  Sync:      %02d:00 %s\n", cfg.Hour(), cfg.Timezone)
	case errors.Is(loadErr, os.ErrNotExist):
		fmt.Printf("  Config:    not found (%s)\n", *cfgPath)
	default:
		fmt.Printf("  Config:    %s (invalid: %v)\n", *cfgPath, loadErr)
	}

	dbPath := ""
	if cfg != nil {
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		dbPath, _ = state.DefaultDBPath()
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		fmt.Printf("  State DB:  not found (%s)\n", dbPath)
		return nil
	}
	fmt.Printf("  State DB:  %s (%s)\n", dbPath, humanSize(info.Size()))

	store, err := state.Open(dbPath)
	if err != nil {
		fmt.Printf("  State DB:  unreadable: %v\n", err)
		return nil
	}
	defer store.Close()

	ctx := context.Background()
	if n, err := store.CountHolidays(ctx); err == nil {
		fmt.Printf("  Holidays:  %d\n", n)
	}
	if list, err := providerstore.New(store).Load(ctx); err == nil {
		fmt.Printf("  Providers: %d\n", len(list))
	}
	if entries, err := store.RecentSyncLogs(ctx, 1); err == nil && len(entries) > 0 {
		last := entries[0]
		fmt.Printf("  Last sync: %s %s (%s)\n", last.SyncedAt.Format(time.DateTime), last.Status, last.Source)
	}
	return nil
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
