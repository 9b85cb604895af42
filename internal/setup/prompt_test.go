package setup

import (
	"bytes"
	"strings"
	"testing"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewPrompter(strings.NewReader(input), &out), &out
}

func TestPrompter_String(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultVal string
		want       string
	}{
		{"typed value", "hello\n", "x", "hello"},
		{"enter keeps default", "\n", "x", "x"},
		{"trims whitespace", "  padded  \n", "", "padded"},
		{"required repeats", "\n\nfinally\n", "", "finally"},
		{"end of input", "", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			if got := p.String("Label", tt.defaultVal); got != tt.want {
				t.Errorf("String = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrompter_Secret(t *testing.T) {
	p, _ := newTestPrompter("\nsk-123\n")
	if got := p.Secret("Key", false); got != "sk-123" {
		t.Errorf("required Secret = %q, want sk-123", got)
	}

	p, _ = newTestPrompter("\n")
	if got := p.Secret("Key", true); got != "" {
		t.Errorf("optional Secret = %q, want empty", got)
	}
}

func TestPrompter_Int(t *testing.T) {
	p, out := newTestPrompter("30\nabc\n7\n")
	if got := p.Int("Hour", 2, 0, 23); got != 7 {
		t.Errorf("Int = %d, want 7", got)
	}
	if strings.Count(out.String(), "enter a number between 0 and 23") != 2 {
		t.Errorf("expected two range hints, got %q", out.String())
	}

	p, _ = newTestPrompter("\n")
	if got := p.Int("Hour", 2, 0, 23); got != 2 {
		t.Errorf("Int default = %d, want 2", got)
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"", true, true},
	}
	for _, tt := range tests {
		p, _ := newTestPrompter(tt.input)
		if got := p.Confirm("Continue?", tt.defaultYes); got != tt.want {
			t.Errorf("Confirm(%q, defaultYes=%v) = %v, want %v", tt.input, tt.defaultYes, got, tt.want)
		}
	}
}

func TestPrompter_ConfirmRepeatsUnknownAnswer(t *testing.T) {
	p, out := newTestPrompter("maybe\nno\n")
	if p.Confirm("Continue?", true) {
		t.Error("Confirm = true, want false")
	}
	if !strings.Contains(out.String(), "answer y or n") {
		t.Errorf("expected a retry hint, got %q", out.String())
	}
}

func TestPrompter_SelectByName(t *testing.T) {
	p, _ := newTestPrompter("ICAL\n")
	idx, err := p.Select("Provider type", []string{"fixed-schedule", "ical"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 1 {
		t.Errorf("Select = %d, want 1", idx)
	}
}

func TestPrompter_Select(t *testing.T) {
	p, out := newTestPrompter("0\n4\n2\n")
	idx, err := p.Select("Pick", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 1 {
		t.Errorf("Select = %d, want 1", idx)
	}
	if !strings.Contains(out.String(), "2) b") {
		t.Errorf("options not listed: %q", out.String())
	}

	p, _ = newTestPrompter("")
	if _, err := p.Select("Pick", []string{"a"}); err == nil {
		t.Error("expected error at end of input")
	}
	if _, err := p.Select("Pick", nil); err == nil {
		t.Error("expected error for empty options")
	}
}
