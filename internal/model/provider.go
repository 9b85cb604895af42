package model

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType selects the adapter used for a ProviderConfig.
type ProviderType string

const (
	// ProviderFixedSchedule is a keyless public-holiday API addressed as
	// {baseUrl}/PublicHolidays/{year}/{country}.
	ProviderFixedSchedule ProviderType = "fixed-schedule"
	// ProviderKeyBased is an API-key holiday API returning
	// response.holidays[] with date.iso.
	ProviderKeyBased ProviderType = "key-based"
	// ProviderAlternatePlan is an API-key holiday API with a paid tier for
	// whole-year queries.
	ProviderAlternatePlan ProviderType = "alternate-plan"
	// ProviderCustom is any JSON API described by field-mapping hints.
	ProviderCustom ProviderType = "custom"
	// ProviderICal is an iCalendar (.ics) feed.
	ProviderICal ProviderType = "ical"
	// ProviderBuiltin computes US federal holidays locally.
	ProviderBuiltin ProviderType = "builtin"
)

// ProviderTypes lists every known type in display order.
var ProviderTypes = []ProviderType{
	ProviderFixedSchedule,
	ProviderKeyBased,
	ProviderAlternatePlan,
	ProviderCustom,
	ProviderICal,
	ProviderBuiltin,
}

// Valid reports whether t is a known provider type.
func (t ProviderType) Valid() bool {
	for _, known := range ProviderTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ProviderConfig describes one external holiday source. The whole list of
// configs is persisted as one JSON array under a single settings key.
type ProviderConfig struct {
	ID      string       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Type    ProviderType `json:"type" yaml:"type"`
	BaseURL string       `json:"baseUrl,omitempty" yaml:"base_url,omitempty"`
	APIKey  string       `json:"apiKey,omitempty" yaml:"api_key,omitempty"`
	Country string       `json:"country,omitempty" yaml:"country,omitempty"`

	// Category is assigned to every record this provider creates.
	Category Category `json:"category" yaml:"category"`
	Color    string   `json:"color,omitempty" yaml:"color,omitempty"`

	// TypeFilter is passed through to providers with a holiday type taxonomy.
	TypeFilter string `json:"typeFilter,omitempty" yaml:"type_filter,omitempty"`

	// Field-mapping hints for ProviderCustom: dot paths into the response.
	DateField              string `json:"dateField,omitempty" yaml:"date_field,omitempty"`
	TitleField             string `json:"titleField,omitempty" yaml:"title_field,omitempty"`
	ResponsePathToHolidays string `json:"responsePathToHolidays,omitempty" yaml:"response_path,omitempty"`

	Enabled bool `json:"enabled" yaml:"enabled"`
}

// EffectiveColor returns the configured color or the category default.
func (p *ProviderConfig) EffectiveColor() string {
	if p.Color != "" {
		return p.Color
	}
	return p.Category.DefaultColor()
}

// Validate checks the fields every provider type needs.
func (p *ProviderConfig) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("provider id is required")
	}
	if strings.ContainsAny(p.ID, " /") {
		return fmt.Errorf("provider id %q must not contain spaces or slashes", p.ID)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("provider %q: unknown type %q", p.ID, p.Type)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("provider %q: unknown category %q", p.ID, p.Category)
	}
	if (p.Type == ProviderCustom || p.Type == ProviderICal) && p.BaseURL == "" {
		return fmt.Errorf("provider %q: baseUrl is required for type %s", p.ID, p.Type)
	}
	if p.Type == ProviderFixedSchedule && p.Country == "" {
		return fmt.Errorf("provider %q: country is required for type %s", p.ID, p.Type)
	}
	return nil
}

// Redacted returns a copy safe to show to clients: the API key is masked.
func (p ProviderConfig) Redacted() ProviderConfig {
	if p.APIKey != "" {
		p.APIKey = "********"
	}
	return p
}

// SyncStatus is the outcome recorded in a SyncLogEntry.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// SyncLogEntry is an append-only audit record of one provider sync attempt.
type SyncLogEntry struct {
	ID       int64      `json:"id"`
	Source   string     `json:"source"`
	Status   SyncStatus `json:"status"`
	Message  string     `json:"message"`
	SyncedAt time.Time  `json:"syncedAt"`
}
