package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/semloc/semloc/internal/bundle"
	"github.com/semloc/semloc/internal/models"
)

func sampleBundle() *bundle.Bundle {
	sim := 0.77
	return &bundle.Bundle{
		URL:             "https://example.com/login",
		BuildID:         "2026-08-29",
		SemanticTargets: []string{"login.submit", "login.username"},
		Resolution: map[string]bundle.Entry{
			"login.username": {
				Status:              models.StatusResolved,
				Confidence:          0.8714,
				EmbeddingSimilarity: &sim,
				Primary: &bundle.Selector{
					Selector: "css=#username",
					Strategy: models.StrategyID,
					Unique:   true,
				},
				Fallbacks: []bundle.Selector{
					{Selector: `css=[data-testid="login-user"]`, Strategy: models.StrategyDataAttr, Unique: true},
				},
			},
			"login.submit": {
				Status:     models.StatusUnresolved,
				Confidence: 0,
				Message:    "no node matches the semantic target",
			},
		},
	}
}

func TestWriteBundle_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBundle(&buf, sampleBundle(), OutputText); err != nil {
		t.Fatalf("WriteBundle() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"https://example.com/login (build 2026-08-29)",
		"1/2 keys resolved",
		"login.username  [resolved]",
		"confidence: 0.8714 (similarity: 0.7700)",
		"primary:    css=#username  (id)",
		`fallback:   css=[data-testid="login-user"]`,
		"login.submit  [unresolved]",
		"note:       no node matches the semantic target",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q\n%s", want, out)
		}
	}
	// Keys print in sorted order regardless of map iteration.
	if strings.Index(out, "login.submit") > strings.Index(out, "login.username") {
		t.Error("keys not sorted in text output")
	}
}

func TestWriteBundle_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBundle(&buf, sampleBundle(), OutputJSON); err != nil {
		t.Fatalf("WriteBundle() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"build_id": "2026-08-29"`) {
		t.Errorf("json output missing build_id:\n%s", out)
	}
	canonical, err := sampleBundle().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if out != string(canonical) {
		t.Error("json output differs from the bundle's canonical encoding")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"shorter than max", "short", 10, "short"},
		{"exactly max", "exact", 5, "exact"},
		{"longer than max", "this is a long string", 10, "this is a ..."},
		{"zero max returns unchanged", "anything", 0, "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWords int
		expected string
	}{
		{"fewer words than max", "one two", 5, "one two"},
		{"exactly max", "one two three", 3, "one two three"},
		{"more words than max", "one two three four", 2, "one two..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateWords(tt.input, tt.maxWords); got != tt.expected {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.input, tt.maxWords, got, tt.expected)
			}
		})
	}
}
