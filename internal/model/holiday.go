// Package model defines shared types used across the sync engine, the
// provider adapters, the state store, and the HTTP layer.
package model

import (
	"fmt"
	"time"
)

// Category controls default color and filtering of a holiday. It is
// independent of the record's Source.
type Category string

const (
	// CategoryFederal is a statutory public holiday.
	CategoryFederal Category = "federal"
	// CategoryFun is a novelty or observance day ("National Pizza Day").
	CategoryFun Category = "fun"
	// CategoryCompany is a company-specific day off or event.
	CategoryCompany Category = "company"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFederal, CategoryFun, CategoryCompany:
		return true
	default:
		return false
	}
}

// DefaultColor returns the display color used when neither the record nor
// its provider specifies one.
func (c Category) DefaultColor() string {
	switch c {
	case CategoryFederal:
		return "#06427F"
	case CategoryFun:
		return "#F59E0B"
	case CategoryCompany:
		return "#10B981"
	default:
		return "#6B7280"
	}
}

// ParseCategory converts s to a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q (want federal, fun or company)", s)
	}
	return c, nil
}

// HolidayRecord is a single calendar entry as stored in the holidays table.
type HolidayRecord struct {
	// ID is assigned at creation and never changes.
	ID string `json:"id"`

	Title string `json:"title"`

	// Date is always YYYY-MM-DD. Equality is string equality.
	Date string `json:"date"`

	Category Category `json:"category"`
	Color    string   `json:"color"`

	// Source is a built-in source key or the id of the ProviderConfig that
	// produced the record. Together with Title and Date it forms the dedup key.
	Source string `json:"source"`

	// Visible is false for records hidden from employee-facing views.
	Visible bool `json:"visible"`

	// Recurring marks the record as a template rolled into future years.
	Recurring bool `json:"recurring"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Year returns the year component of the record's date, or 0 if the date is
// malformed.
func (h *HolidayRecord) Year() int {
	y, _, _, err := SplitDate(h.Date)
	if err != nil {
		return 0
	}
	return y
}

// NormalizedHoliday is the uniform shape every provider adapter produces.
type NormalizedHoliday struct {
	Title string
	Date  string
}
