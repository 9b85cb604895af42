package setup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/njoerd114/holidaysync/internal/config"
	"github.com/njoerd114/holidaysync/internal/model"
	"github.com/njoerd114/holidaysync/internal/providerstore"
	"github.com/njoerd114/holidaysync/internal/state"
	syncengine "github.com/njoerd114/holidaysync/internal/sync"
)

// Wizard guides the user through first-run configuration.
type Wizard struct {
	prompt  *Prompter
	logger  *slog.Logger
	w       io.Writer
	cfgPath string
}

// NewWizard creates a Wizard that writes its config to cfgPath.
func NewWizard(r io.Reader, w io.Writer, cfgPath string, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt:  NewPrompter(r, w),
		logger:  logger,
		w:       w,
		cfgPath: cfgPath,
	}
}

// Run executes the interactive setup wizard: server settings, the sync
// schedule, then the provider list.
func (wiz *Wizard) Run(ctx context.Context) error {
	fmt.Fprintf(wiz.w, "\nWelcome to holidaysync setup!\n")
	fmt.Fprintf(wiz.w, "This wizard writes %s and configures holiday providers.\n\n", wiz.cfgPath)

	cfg, err := wiz.configure()
	if err != nil {
		return err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = state.DefaultDBPath(); err != nil {
			return err
		}
	}
	st, err := state.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(wiz.w, "Step 3/3: Holiday Providers\n")
	if err := wiz.configureProviders(ctx, providerstore.New(st)); err != nil {
		return err
	}

	fmt.Fprintf(wiz.w, "\nSetup complete!\n")
	fmt.Fprintf(wiz.w, "  Config:    %s\n", wiz.cfgPath)
	fmt.Fprintf(wiz.w, "  Database:  %s\n", dbPath)
	fmt.Fprintf(wiz.w, "  Sync now:  holidaysync sync-once\n")
	fmt.Fprintf(wiz.w, "  Serve:     holidaysync serve\n\n")
	return nil
}

// configure writes a new config file, or loads the existing one if the user
// keeps it.
func (wiz *Wizard) configure() (*config.Config, error) {
	if _, statErr := os.Stat(wiz.cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", wiz.cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n\n")
			return config.Load(wiz.cfgPath)
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	fmt.Fprintf(wiz.w, "Step 1/3: Server\n")
	defaultDB, err := state.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	dbPath := wiz.prompt.String("Database file", defaultDB)
	listen := wiz.prompt.String("HTTP listen address", config.DefaultListenAddr)

	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}
	jwtSecret := wiz.prompt.String("JWT secret (Enter to use a generated one)", secret)
	for len(jwtSecret) < 16 {
		fmt.Fprintf(wiz.w, "  (the secret must be at least 16 characters)\n")
		jwtSecret = wiz.prompt.String("JWT secret", secret)
	}
	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "Step 2/3: Schedule\n")
	hour := wiz.prompt.Int("Nightly sync hour (0-23)", config.DefaultSyncHour, 0, 23)
	tz := wiz.prompt.String("Time zone (IANA name)", config.DefaultTimezone)
	for {
		if _, err := time.LoadLocation(tz); err == nil {
			break
		}
		fmt.Fprintf(wiz.w, "  (unknown time zone %q)\n", tz)
		tz = wiz.prompt.String("Time zone (IANA name)", config.DefaultTimezone)
	}
	fmt.Fprintf(wiz.w, "\n")

	cfg := &config.Config{
		DBPath:     dbPath,
		ListenAddr: listen,
		JWTSecret:  jwtSecret,
		SyncHour:   &hour,
		Timezone:   tz,
	}
	if err := cfg.Write(wiz.cfgPath); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Config written to %s\n\n", wiz.cfgPath)
	return cfg, nil
}

// configureProviders seeds the default list on a fresh database, then lets
// the user add more.
func (wiz *Wizard) configureProviders(ctx context.Context, store *providerstore.Store) error {
	exists, err := store.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if wiz.prompt.Confirm("Start with the built-in US federal holidays?", true) {
			if _, err := syncengine.NewBootstrap(store, wiz.logger, nil, wiz.w).Run(ctx); err != nil {
				return err
			}
		} else if err := store.Save(ctx, nil); err != nil {
			// An empty saved list stops the server from seeding defaults.
			return err
		}
	}

	for wiz.prompt.Confirm("Add a holiday provider?", false) {
		p, err := wiz.promptProvider()
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			fmt.Fprintf(wiz.w, "  ✗ %v\n\n", err)
			continue
		}
		if err := store.Add(ctx, p); err != nil {
			if errors.Is(err, providerstore.ErrDuplicateID) {
				fmt.Fprintf(wiz.w, "  ✗ a provider with id %q already exists\n\n", p.ID)
				continue
			}
			return err
		}
		fmt.Fprintf(wiz.w, "  ✓ Added %s (%s)\n\n", p.ID, p.Type)
	}

	list, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(wiz.w, "\n  %d provider(s) configured:\n", len(list))
	for _, p := range list {
		fmt.Fprintf(wiz.w, "    • %s (%s, %s)\n", p.ID, p.Type, p.Category)
	}
	return nil
}

var categories = []model.Category{model.CategoryFederal, model.CategoryFun, model.CategoryCompany}

func (wiz *Wizard) promptProvider() (model.ProviderConfig, error) {
	typeNames := make([]string, len(model.ProviderTypes))
	for i, t := range model.ProviderTypes {
		typeNames[i] = string(t)
	}
	idx, err := wiz.prompt.Select("Provider type", typeNames)
	if err != nil {
		return model.ProviderConfig{}, fmt.Errorf("selecting provider type: %w", err)
	}
	p := model.ProviderConfig{Type: model.ProviderTypes[idx], Enabled: true}

	p.ID = wiz.prompt.String("Provider id (no spaces)", "")
	p.Name = wiz.prompt.String("Display name", p.ID)

	catNames := make([]string, len(categories))
	for i, c := range categories {
		catNames[i] = string(c)
	}
	idx, err = wiz.prompt.Select("Category", catNames)
	if err != nil {
		return model.ProviderConfig{}, fmt.Errorf("selecting category: %w", err)
	}
	p.Category = categories[idx]

	switch p.Type {
	case model.ProviderFixedSchedule, model.ProviderKeyBased, model.ProviderAlternatePlan, model.ProviderBuiltin:
		p.Country = strings.ToUpper(wiz.prompt.String("Country code", "US"))
	}

	switch p.Type {
	case model.ProviderKeyBased, model.ProviderAlternatePlan:
		p.APIKey = wiz.prompt.Secret("API key (empty skips this provider at sync time)", true)
	case model.ProviderCustom:
		p.BaseURL = wiz.prompt.String("Endpoint URL ({year} and {country} are substituted)", "")
		p.Country = strings.ToUpper(wiz.prompt.String("Country code", "US"))
		p.APIKey = wiz.prompt.Secret("API key (optional)", true)
		p.ResponsePathToHolidays = wiz.prompt.String("Path to the holiday array (empty for a root array)", ".")
		if p.ResponsePathToHolidays == "." {
			p.ResponsePathToHolidays = ""
		}
		p.DateField = wiz.prompt.String("Date field", "date")
		p.TitleField = wiz.prompt.String("Title field", "name")
	case model.ProviderICal:
		p.BaseURL = wiz.prompt.String("Feed URL", "")
	}
	return p, nil
}

func generateSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
