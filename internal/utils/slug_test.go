package utils

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Stocks Climb as Yields Ease", "stocks-climb-as-yields-ease"},
		{"  S&P 500: Record -- High!  ", "s-p-500-record-high"},
		{"Café prices", "caf-prices"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyMaxLength(t *testing.T) {
	slug := Slugify(strings.Repeat("abcd ", 40))
	if len(slug) > MaxSlugLength {
		t.Fatalf("slug too long: %d", len(slug))
	}
	if strings.HasSuffix(slug, "-") {
		t.Fatalf("slug must not end with hyphen: %q", slug)
	}
	if !IsValidSlug(slug) {
		t.Fatalf("expected valid slug: %q", slug)
	}
}

func TestIsValidSlug(t *testing.T) {
	valid := []string{"a", "fed-holds-rates", "q3-2026"}
	invalid := []string{"", "Upper", "double--hyphen", "-lead", "trail-", "with space", strings.Repeat("a", 81)}
	for _, s := range valid {
		if !IsValidSlug(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if IsValidSlug(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
