// Package providerstore persists the list of configured holiday providers as
// one JSON array under a single settings key.
//
// Every mutation is a read-modify-write of the whole list. Two admins editing
// at the same time race, and the last write wins; writes are rare enough that
// no locking is done beyond the per-process mutex below.
package providerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/njoerd114/holidaysync/internal/model"
)

// SettingsKey is the settings row holding the serialized provider list.
const SettingsKey = "holiday_providers"

var (
	// ErrNotFound is returned when no provider has the requested id.
	ErrNotFound = errors.New("provider not found")
	// ErrDuplicateID is returned when saving two providers with the same id.
	ErrDuplicateID = errors.New("duplicate provider id")
)

// Settings is the key-value store backing the provider list.
// Implemented by [state.Store].
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store loads and saves provider configs.
type Store struct {
	settings Settings
	mu       sync.Mutex
}

// New creates a Store over the given settings backend.
func New(settings Settings) *Store {
	return &Store{settings: settings}
}

// Load returns every configured provider in stored order. A missing key
// yields an empty list; a corrupt value is an error.
func (s *Store) Load(ctx context.Context) ([]model.ProviderConfig, error) {
	raw, ok, err := s.settings.GetSetting(ctx, SettingsKey)
	if err != nil {
		return nil, fmt.Errorf("loading provider configs: %w", err)
	}
	if !ok || raw == "" {
		return []model.ProviderConfig{}, nil
	}

	var list []model.ProviderConfig
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("parsing provider configs: %w", err)
	}
	if list == nil {
		list = []model.ProviderConfig{}
	}
	return list, nil
}

// Exists reports whether the provider list has ever been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, ok, err := s.settings.GetSetting(ctx, SettingsKey)
	if err != nil {
		return false, fmt.Errorf("checking provider configs: %w", err)
	}
	return ok, nil
}

// Save validates list and replaces the stored list with it.
func (s *Store) Save(ctx context.Context, list []model.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, list)
}

func (s *Store) save(ctx context.Context, list []model.ProviderConfig) error {
	seen := make(map[string]bool, len(list))
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return fmt.Errorf("invalid provider config: %w", err)
		}
		if seen[list[i].ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, list[i].ID)
		}
		seen[list[i].ID] = true
	}
	if list == nil {
		list = []model.ProviderConfig{}
	}

	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding provider configs: %w", err)
	}
	if err := s.settings.SetSetting(ctx, SettingsKey, string(b)); err != nil {
		return fmt.Errorf("saving provider configs: %w", err)
	}
	return nil
}

// Enabled returns only the enabled providers, in stored order.
func (s *Store) Enabled(ctx context.Context) ([]model.ProviderConfig, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProviderConfig, 0, len(all))
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns the provider with the given id.
func (s *Store) Get(ctx context.Context, id string) (model.ProviderConfig, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return model.ProviderConfig{}, err
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return model.ProviderConfig{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Add appends p to the list.
func (s *Store) Add(ctx context.Context, p model.ProviderConfig) error {
	return s.mutate(ctx, func(list []model.ProviderConfig) ([]model.ProviderConfig, error) {
		return append(list, p), nil
	})
}

// Update replaces the provider with p.ID. An empty APIKey in p keeps the
// stored key, so clients that only ever see redacted configs can still edit.
func (s *Store) Update(ctx context.Context, p model.ProviderConfig) error {
	return s.mutate(ctx, func(list []model.ProviderConfig) ([]model.ProviderConfig, error) {
		for i := range list {
			if list[i].ID != p.ID {
				continue
			}
			if p.APIKey == "" {
				p.APIKey = list[i].APIKey
			}
			list[i] = p
			return list, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrNotFound, p.ID)
	})
}

// Remove deletes the provider with the given id. Holiday records it created
// are left in place.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(list []model.ProviderConfig) ([]model.ProviderConfig, error) {
		for i := range list {
			if list[i].ID == id {
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	})
}

func (s *Store) mutate(ctx context.Context, fn func([]model.ProviderConfig) ([]model.ProviderConfig, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	list, err = fn(list)
	if err != nil {
		return err
	}
	return s.save(ctx, list)
}
