package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/njoerd114/holidaysync/internal/model"
)

const (
	// DefaultAlternatePlanURL is the AbstractAPI holidays endpoint.
	DefaultAlternatePlanURL = "https://holidays.abstractapi.com/v1/"

	// DefaultDayInterval keeps the per-day fallback under the free plan's
	// one request per second.
	DefaultDayInterval = 1100 * time.Millisecond

	// FallbackNote is appended to the sync log message when the day-by-day
	// path was used.
	FallbackNote = "free plan: day-by-day fallback"
)

// ErrPlanUpgradeRequired marks a response that rejected a whole-year query
// because the account's plan does not include it.
var ErrPlanUpgradeRequired = errors.New("provider requires an upgraded plan")

// planErrorCodes are error codes meaning the query needs a paid tier.
var planErrorCodes = map[string]bool{
	"plan_upgrade_required": true,
	"payment_required":      true,
}

// abstractHoliday is one element of the response array. The numeric parts
// arrive as strings ("07"), the combined date as "M/D/YYYY".
type abstractHoliday struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Date      string   `json:"date"`
	DateYear  flexUint `json:"date_year"`
	DateMonth flexUint `json:"date_month"`
	DateDay   flexUint `json:"date_day"`
}

type abstractError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// AlternatePlanAdapter queries a bare endpoint with api_key, country and
// year. When the account's plan rejects whole-year queries it falls back to
// one request per calendar day, paced to respect the free plan's rate limit.
type AlternatePlanAdapter struct {
	http        *httpClient
	dayInterval time.Duration
	log         *slog.Logger
}

// Fetch implements [Adapter].
func (a *AlternatePlanAdapter) Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Skipped: true}, nil
	}

	holidays, err := a.fetchYear(ctx, cfg, year)
	if errors.Is(err, ErrPlanUpgradeRequired) {
		a.logger().Info("whole-year query needs a paid plan, falling back to day-by-day",
			"provider", cfg.ID, "year", year, "days", model.DaysInYear(year))
		return a.fetchByDay(ctx, cfg, year)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Holidays: holidays}, nil
}

func (a *AlternatePlanAdapter) fetchYear(ctx context.Context, cfg model.ProviderConfig, year int) ([]model.NormalizedHoliday, error) {
	q := a.baseQuery(cfg, year)
	body, err := a.http.get(ctx, a.endpoint(cfg)+"?"+q.Encode())
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && isPlanError(httpErr.StatusCode, body) {
			return nil, fmt.Errorf("fetch holidays %d/%s: %w", year, cfg.Country, ErrPlanUpgradeRequired)
		}
		return nil, fmt.Errorf("fetch holidays %d/%s: %w", year, cfg.Country, err)
	}
	if isPlanError(http.StatusOK, body) {
		return nil, fmt.Errorf("fetch holidays %d/%s: %w", year, cfg.Country, ErrPlanUpgradeRequired)
	}
	return parseAbstractHolidays(body)
}

// fetchByDay issues one request per day of year. Individual day failures are
// skipped; only a cancelled context aborts the loop.
func (a *AlternatePlanAdapter) fetchByDay(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	limit := rate.Inf
	if a.dayInterval > 0 {
		limit = rate.Every(a.dayInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	var out []model.NormalizedHoliday
	failed := 0
	day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for day.Year() == year {
		if err := limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("day-by-day fallback stopped at %s: %w", day.Format(model.DateLayout), err)
		}

		q := a.baseQuery(cfg, year)
		q.Set("month", strconv.Itoa(int(day.Month())))
		q.Set("day", strconv.Itoa(day.Day()))

		body, err := a.http.get(ctx, a.endpoint(cfg)+"?"+q.Encode())
		if err == nil {
			var holidays []model.NormalizedHoliday
			holidays, err = parseAbstractHolidays(body)
			out = append(out, holidays...)
		}
		if err != nil {
			failed++
			a.logger().Debug("day fetch failed", "provider", cfg.ID, "date", day.Format(model.DateLayout), "error", err)
		}
		day = day.AddDate(0, 0, 1)
	}

	note := FallbackNote
	if failed > 0 {
		note = fmt.Sprintf("%s, %d of %d days failed", FallbackNote, failed, model.DaysInYear(year))
	}
	return Result{Holidays: out, Note: note}, nil
}

func (a *AlternatePlanAdapter) endpoint(cfg model.ProviderConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return DefaultAlternatePlanURL
}

func (a *AlternatePlanAdapter) baseQuery(cfg model.ProviderConfig, year int) url.Values {
	q := url.Values{}
	q.Set("api_key", cfg.APIKey)
	q.Set("country", cfg.Country)
	q.Set("year", strconv.Itoa(year))
	return q
}

func (a *AlternatePlanAdapter) logger() *slog.Logger {
	if a.log == nil {
		return slog.Default()
	}
	return a.log
}

// isPlanError reports whether a response signals that the query needs a paid
// plan: HTTP 402, or an error payload carrying a plan error code or message.
func isPlanError(status int, body []byte) bool {
	if status == http.StatusPaymentRequired {
		return true
	}
	var e abstractError
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	if planErrorCodes[strings.ToLower(e.Error.Code)] {
		return true
	}
	msg := strings.ToLower(e.Error.Message)
	return strings.Contains(msg, "upgrade") && strings.Contains(msg, "plan")
}

func parseAbstractHolidays(body []byte) ([]model.NormalizedHoliday, error) {
	var raw []abstractHoliday
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	out := make([]model.NormalizedHoliday, 0, len(raw))
	for _, h := range raw {
		date, ok := h.normalizedDate()
		if h.Name == "" || !ok {
			continue
		}
		out = append(out, model.NormalizedHoliday{Title: h.Name, Date: date})
	}
	return out, nil
}

// normalizedDate prefers the split year/month/day fields and falls back to
// the M/D/YYYY string.
func (h abstractHoliday) normalizedDate() (string, bool) {
	if h.DateYear > 0 && h.DateMonth > 0 && h.DateDay > 0 {
		d := model.FormatDate(int(h.DateYear), int(h.DateMonth), int(h.DateDay))
		if model.ValidDate(d) {
			return d, true
		}
	}
	if h.Date != "" {
		if d, err := model.ParseSlashDate(h.Date); err == nil {
			return d, true
		}
	}
	return "", false
}

// flexUint decodes a JSON number or a numeric string. Anything else decodes
// as zero.
type flexUint uint

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		*f = 0
		return nil //nolint:nilerr // malformed parts fall back to the combined date
	}
	*f = flexUint(n)
	return nil
}
