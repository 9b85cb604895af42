// Package provider fetches holidays from external data sources and normalizes
// them into [model.NormalizedHoliday]. There is one [Adapter] per
// [model.ProviderType]; a [Registry] maps types to adapters so that adding a
// source type means registering one more adapter.
//
// Adapters never write to the store. The sync engine upserts what they return.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/njoerd114/holidaysync/internal/model"
)

// ErrUnsupportedType is returned by [Registry.Lookup] for a type with no
// registered adapter.
var ErrUnsupportedType = errors.New("unsupported provider type")

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 16 << 20

// Result is what an adapter returns for one provider and year.
type Result struct {
	Holidays []model.NormalizedHoliday

	// Skipped is true when the provider was not queried at all, e.g. a
	// key-gated provider without an API key. No sync log entry is written.
	Skipped bool

	// Note is appended to the success log message (e.g. which fetch path
	// was taken).
	Note string
}

// Adapter fetches and normalizes one provider's holidays for a year.
type Adapter interface {
	Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error)
}

// AdapterFunc lets an ordinary function serve as an Adapter.
type AdapterFunc func(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error)

// Fetch calls f.
func (f AdapterFunc) Fetch(ctx context.Context, cfg model.ProviderConfig, year int) (Result, error) {
	return f(ctx, cfg, year)
}

// Option customizes a Registry built by [NewRegistry].
type Option func(*options)

type options struct {
	dayInterval time.Duration
	userAgent   string
}

// WithDayInterval sets the pause between per-day requests in the
// alternate-plan fallback path. Zero disables pacing.
func WithDayInterval(d time.Duration) Option {
	return func(o *options) { o.dayInterval = d }
}

// WithUserAgent sets the User-Agent header on provider requests.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// Registry maps provider types to adapters.
type Registry struct {
	adapters map[model.ProviderType]Adapter
}

// NewRegistry returns a Registry with every built-in adapter registered.
// A nil client means [http.DefaultClient].
func NewRegistry(client *http.Client, logger *slog.Logger, opts ...Option) *Registry {
	o := options{dayInterval: DefaultDayInterval, userAgent: "holidaysync"}
	for _, opt := range opts {
		opt(&o)
	}
	if client == nil {
		client = http.DefaultClient
	}
	hc := &httpClient{hc: client, userAgent: o.userAgent}

	r := &Registry{adapters: make(map[model.ProviderType]Adapter)}
	r.Register(model.ProviderFixedSchedule, &FixedScheduleAdapter{http: hc})
	r.Register(model.ProviderKeyBased, &KeyBasedAdapter{http: hc})
	r.Register(model.ProviderAlternatePlan, &AlternatePlanAdapter{http: hc, dayInterval: o.dayInterval, log: logger})
	r.Register(model.ProviderCustom, &CustomAdapter{http: hc})
	r.Register(model.ProviderICal, &ICalAdapter{http: hc})
	r.Register(model.ProviderBuiltin, BuiltinAdapter{})
	return r
}

// Register adds or replaces the adapter for t.
func (r *Registry) Register(t model.ProviderType, a Adapter) {
	r.adapters[t] = a
}

// Lookup returns the adapter for t.
func (r *Registry) Lookup(t model.ProviderType) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	return a, nil
}

// HTTPError is returned for non-2xx provider responses.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, excerpt(e.Body))
}

// httpClient wraps the shared *http.Client with the request conventions
// every adapter uses.
type httpClient struct {
	hc        *http.Client
	userAgent string
}

// get issues a GET and returns the body. Non-2xx responses return the body
// together with an *HTTPError so callers can inspect error payloads.
func (c *httpClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/calendar;q=0.9, */*;q=0.5")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactKey(uerr.URL)
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// getJSON issues a GET and decodes a successful response into v.
func (c *httpClient) getJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// joinURL appends path segments to base without doubling slashes.
func joinURL(base string, segments ...string) string {
	out := strings.TrimRight(base, "/")
	for _, s := range segments {
		out += "/" + strings.Trim(s, "/")
	}
	return out
}

func excerpt(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "…"
	}
	return s
}

// redactKey hides the api_key query parameter in error messages that end up
// in the sync log.
func redactKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
