package sync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/njoerd114/holidaysync/internal/model"
)

// DefaultProviders is the provider list seeded on first run: the locally
// computed US federal holidays, which need neither network access nor an
// API key.
func DefaultProviders() []model.ProviderConfig {
	return []model.ProviderConfig{
		{
			ID:       "us-federal",
			Name:     "US federal holidays",
			Type:     model.ProviderBuiltin,
			Country:  "US",
			Category: model.CategoryFederal,
			Enabled:  true,
		},
	}
}

// Bootstrap performs first-run seeding of the provider list. Once any list
// has been saved, even an empty one, it does nothing.
type Bootstrap struct {
	providers ProviderSeeder
	log       *slog.Logger
	reader    io.Reader // confirmation prompt input; nil applies without asking
	writer    io.Writer // summary output
}

// NewBootstrap creates a Bootstrap. With a nil reader the defaults are
// applied without confirmation, as the server does on startup.
func NewBootstrap(providers ProviderSeeder, logger *slog.Logger, reader io.Reader, writer io.Writer) *Bootstrap {
	if writer == nil {
		writer = io.Discard
	}
	return &Bootstrap{providers: providers, log: logger, reader: reader, writer: writer}
}

// Run seeds [DefaultProviders] when no provider list exists. It returns true
// if the list was written.
func (b *Bootstrap) Run(ctx context.Context) (bool, error) {
	exists, err := b.providers.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("checking provider configs: %w", err)
	}
	if exists {
		b.log.Debug("provider configs present, skipping bootstrap")
		return false, nil
	}

	defaults := DefaultProviders()
	b.printSummary(defaults)

	if b.reader != nil && !b.confirm() {
		b.log.Info("bootstrap cancelled by user")
		return false, nil
	}

	if err := b.providers.Save(ctx, defaults); err != nil {
		return false, fmt.Errorf("seeding default providers: %w", err)
	}
	b.log.Info("seeded default providers", "count", len(defaults))
	return true, nil
}

func (b *Bootstrap) printSummary(list []model.ProviderConfig) {
	_, _ = fmt.Fprintf(b.writer, "\n--- First-Run Provider Setup ---\n\n")
	_, _ = fmt.Fprintf(b.writer, "No holiday providers are configured. Defaults:\n")
	for _, p := range list {
		_, _ = fmt.Fprintf(b.writer, "  ✓ %s (%s, %s, %s)\n", p.Name, p.ID, p.Type, p.Category)
	}
	_, _ = fmt.Fprintln(b.writer)
}

// confirm reads a y/n response from the reader. Empty input means yes.
func (b *Bootstrap) confirm() bool {
	_, _ = fmt.Fprintf(b.writer, "Add these providers? [Y/n] ")
	scanner := bufio.NewScanner(b.reader)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "" || answer == "y" || answer == "yes"
	}
	return false
}
