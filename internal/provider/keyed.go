package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/njoerd114/holidaysync/internal/model"
)

// DefaultKeyBasedURL is the Calendarific v2 API.
const DefaultKeyBasedURL = "https://calendarific.com/api/v2"

// funKeywords are lowercase substrings that mark a holiday name as a
// novelty/observance day when a key-based provider is categorized as fun.
var funKeywords = []string{
	"day", "national", "world", "international", "week", "month",
	"festival", "appreciation", "awareness",
	"pizza", "donut", "coffee", "chocolate", "cookie", "cake", "pie",
	"taco", "burger", "ice cream", "pancake", "cheese", "wine", "beer",
	"dog", "cat", "pet", "friend", "smile", "hug", "joke", "hat", "sock",
}

// excludedFunTypes are provider type labels that are never fun holidays.
var excludedFunTypes = []string{"federal", "public"}

type calendarificEnvelope struct {
	Meta struct {
		Code        int    `json:"code"`
		ErrorType   string `json:"error_type,omitempty"`
		ErrorDetail string `json:"error_detail,omitempty"`
	} `json:"meta"`
	// Response is an object with a holidays array, or an empty JSON array
	// when the provider has nothing for the query.
	Response json.RawMessage `json:"response"`
}

type calendarificResponse struct {
	Holidays []calendarificHoliday `json:"holidays"`
}

type calendarificHoliday struct {
	Name string `json:"name"`
	Date struct {
		ISO string `json:"iso"`
	} `json:"date"`
	Type []string `json:"type"`
}

// KeyBasedAdapter queries {baseUrl}/holidays?api_key&country&year[&type].
// Providers without an API key are skipped without a request.
type KeyBasedAdapter struct {
	http *httpClient
}

// Fetch implements [Adapter].
func (a *KeyBasedAdapter) Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Skipped: true}, nil
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultKeyBasedURL
	}
	q := url.Values{}
	q.Set("api_key", cfg.APIKey)
	q.Set("country", cfg.Country)
	q.Set("year", strconv.Itoa(year))
	if cfg.TypeFilter != "" {
		q.Set("type", cfg.TypeFilter)
	}
	endpoint := joinURL(base, "holidays") + "?" + q.Encode()

	var env calendarificEnvelope
	if err := a.http.getJSON(ctx, endpoint, &env); err != nil {
		return Result{}, fmt.Errorf("fetch holidays %d/%s: %w", year, cfg.Country, err)
	}
	if env.Meta.Code != 0 && env.Meta.Code != 200 {
		return Result{}, fmt.Errorf("provider error %d: %s", env.Meta.Code, env.Meta.ErrorDetail)
	}

	holidays, err := decodeCalendarificHolidays(env.Response)
	if err != nil {
		return Result{}, err
	}

	funOnly := cfg.Category == model.CategoryFun
	out := make([]model.NormalizedHoliday, 0, len(holidays))
	for _, h := range holidays {
		if h.Name == "" || h.Date.ISO == "" {
			continue
		}
		if funOnly && !IsFunHoliday(h.Name, h.Type) {
			continue
		}
		out = append(out, model.NormalizedHoliday{Title: h.Name, Date: model.DateOnly(h.Date.ISO)})
	}
	return Result{Holidays: out}, nil
}

func decodeCalendarificHolidays(raw json.RawMessage) ([]calendarificHoliday, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		return nil, nil
	}
	var resp calendarificResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("parse response.holidays: %w", err)
	}
	return resp.Holidays, nil
}

// IsFunHoliday reports whether a holiday qualifies for the fun category: its
// name contains a fun keyword and none of its types mark it as a federal or
// public holiday.
func IsFunHoliday(name string, types []string) bool {
	for _, t := range types {
		lt := strings.ToLower(t)
		for _, ex := range excludedFunTypes {
			if strings.Contains(lt, ex) {
				return false
			}
		}
	}
	lower := strings.ToLower(name)
	for _, kw := range funKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
