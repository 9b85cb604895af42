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

const (
	defaultTitleField = "name"
	defaultDateField  = "date"
)

// CustomAdapter queries an arbitrary JSON endpoint. The endpoint template may
// contain {year} and {country}; the holiday array and its fields are located
// with dot paths from the provider config.
type CustomAdapter struct {
	http *httpClient
}

// Fetch implements [Adapter].
func (a *CustomAdapter) Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	endpoint, err := expandEndpoint(cfg, year)
	if err != nil {
		return Result{}, err
	}

	body, err := a.http.get(ctx, endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", redactKey(endpoint), err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}

	node, ok := WalkPath(doc, cfg.ResponsePathToHolidays)
	if !ok {
		return Result{}, nil
	}
	items, ok := node.([]any)
	if !ok {
		return Result{}, fmt.Errorf("value at %q is %T, not an array", cfg.ResponsePathToHolidays, node)
	}

	titleField := cfg.TitleField
	if titleField == "" {
		titleField = defaultTitleField
	}
	dateField := cfg.DateField
	if dateField == "" {
		dateField = defaultDateField
	}

	out := make([]model.NormalizedHoliday, 0, len(items))
	for _, item := range items {
		title, ok := stringAt(item, titleField)
		if !ok {
			continue
		}
		date, ok := stringAt(item, dateField)
		if !ok {
			continue
		}
		out = append(out, model.NormalizedHoliday{Title: title, Date: normalizeLooseDate(date)})
	}
	return Result{Holidays: out}, nil
}

// expandEndpoint substitutes {year} and {country} and appends api_key when the
// config has one.
func expandEndpoint(cfg model.ProviderConfig, year int) (string, error) {
	r := strings.NewReplacer(
		"{year}", strconv.Itoa(year),
		"{country}", url.QueryEscape(cfg.Country),
	)
	raw := r.Replace(cfg.BaseURL)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid endpoint %q: scheme must be http or https", raw)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set("api_key", cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// WalkPath follows a dot-separated path through decoded JSON. Object keys are
// looked up by name; a numeric segment indexes into an array. An empty path
// returns root. ok is false as soon as a segment resolves to nothing.
func WalkPath(root any, path string) (any, bool) {
	cur := root
	if strings.TrimSpace(path) == "" {
		return cur, cur != nil
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok || next == nil {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) || node[i] == nil {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// stringAt returns the non-empty string (or number) at path inside item.
func stringAt(item any, path string) (string, bool) {
	v, ok := WalkPath(item, path)
	if !ok {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// normalizeLooseDate accepts ISO dates, ISO timestamps and M/D/YYYY.
func normalizeLooseDate(s string) string {
	if strings.Contains(s, "/") {
		if d, err := model.ParseSlashDate(s); err == nil {
			return d
		}
	}
	return model.DateOnly(s)
}
