package language

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" de ", "de"},
		{"german", "de"},
		{"English", "en"},
		// Unknown but well-formed 2-letter tags pass through.
		{"eu", "eu"},
		// Malformed input is rejected.
		{"", ""},
		{"e", ""},
		{"e1", ""},
		{"engl", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, code := range []string{"en", "de", "zh", "eu"} {
		if !IsValid(code) {
			t.Errorf("IsValid(%q) = false, want true", code)
		}
	}
	for _, code := range []string{"", "e", "123", "e!", "eng"} {
		if IsValid(code) {
			t.Errorf("IsValid(%q) = true, want false", code)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("de"); got != "German" {
		t.Fatalf("DisplayName(de) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Fatalf("DisplayName(empty) = %q", got)
	}
	if got := DisplayName("xx"); got != "XX" {
		t.Fatalf("DisplayName(xx) = %q", got)
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"DE", "german", "en", "", "bogus3", "en"})
	want := []string{"de", "en"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
}
