package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/njoerd114/holidaysync/internal/model"
)

// DefaultFixedScheduleURL is the Nager.Date v3 API.
const DefaultFixedScheduleURL = "https://date.nager.at/api/v3"

// nagerHoliday is one element of the PublicHolidays array.
type nagerHoliday struct {
	Date      string   `json:"date"`
	LocalName string   `json:"localName"`
	Name      string   `json:"name"`
	Types     []string `json:"types,omitempty"`
}

// FixedScheduleAdapter queries {baseUrl}/PublicHolidays/{year}/{country}.
// No API key is involved.
type FixedScheduleAdapter struct {
	http *httpClient
}

// Fetch implements [Adapter].
func (a *FixedScheduleAdapter) Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultFixedScheduleURL
	}
	endpoint := joinURL(base, "PublicHolidays", strconv.Itoa(year), url.PathEscape(cfg.Country))

	var raw []nagerHoliday
	if err := a.http.getJSON(ctx, endpoint, &raw); err != nil {
		return Result{}, fmt.Errorf("fetch public holidays %d/%s: %w", year, cfg.Country, err)
	}

	out := make([]model.NormalizedHoliday, 0, len(raw))
	for _, h := range raw {
		if h.Name == "" || h.Date == "" {
			continue
		}
		out = append(out, model.NormalizedHoliday{Title: h.Name, Date: model.DateOnly(h.Date)})
	}
	return Result{Holidays: out}, nil
}
