package providerstore

import (
	"context"
	"errors"
	"testing"

	"github.com/njoerd114/holidaysync/internal/model"
)

type memSettings struct {
	values map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{values: make(map[string]string)}
}

func (m *memSettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettings) SetSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func nager(id string, enabled bool) model.ProviderConfig {
	return model.ProviderConfig{
		ID:       id,
		Name:     "Nager " + id,
		Type:     model.ProviderFixedSchedule,
		Country:  "US",
		Category: model.CategoryFederal,
		Enabled:  enabled,
	}
}

func TestLoad_MissingKeyIsEmpty(t *testing.T) {
	s := New(newMemSettings())
	list, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("Load = %#v, want empty non-nil slice", list)
	}

	exists, err := s.Exists(context.Background())
	if err != nil || exists {
		t.Errorf("Exists = %v, %v; want false, nil", exists, err)
	}
}

func TestLoad_CorruptJSON(t *testing.T) {
	ms := newMemSettings()
	ms.values[SettingsKey] = `{not json`
	s := New(ms)
	if _, err := s.Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveLoad_RoundTripPreservesOrder(t *testing.T) {
	s := New(newMemSettings())
	ctx := context.Background()
	want := []model.ProviderConfig{nager("b", true), nager("a", false), nager("c", true)}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, want[i].ID)
		}
	}

	enabled, err := s.Enabled(ctx)
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if len(enabled) != 2 || enabled[0].ID != "b" || enabled[1].ID != "c" {
		t.Errorf("Enabled = %+v, want [b c]", enabled)
	}
}

func TestSave_RejectsDuplicateAndInvalid(t *testing.T) {
	s := New(newMemSettings())
	ctx := context.Background()

	err := s.Save(ctx, []model.ProviderConfig{nager("a", true), nager("a", true)})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("err = %v, want ErrDuplicateID", err)
	}

	bad := nager("x", true)
	bad.Category = "holiday"
	if err := s.Save(ctx, []model.ProviderConfig{bad}); err == nil {
		t.Error("expected validation error")
	}
}

func TestAddUpdateRemove(t *testing.T) {
	s := New(newMemSettings())
	ctx := context.Background()

	keyed := model.ProviderConfig{
		ID: "cal", Type: model.ProviderKeyBased, APIKey: "k1",
		Country: "US", Category: model.CategoryFun, Enabled: true,
	}
	if err := s.Add(ctx, keyed); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, keyed); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second Add err = %v, want ErrDuplicateID", err)
	}

	edit := keyed
	edit.APIKey = ""
	edit.Name = "Calendarific"
	if err := s.Update(ctx, edit); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(ctx, "cal")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Calendarific" {
		t.Errorf("Name = %q, want updated", got.Name)
	}
	if got.APIKey != "k1" {
		t.Errorf("APIKey = %q, want stored key kept", got.APIKey)
	}

	if err := s.Update(ctx, nager("ghost", true)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update unknown err = %v, want ErrNotFound", err)
	}

	if err := s.Remove(ctx, "cal"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "cal"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after remove err = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ctx, "cal"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove err = %v, want ErrNotFound", err)
	}
}
