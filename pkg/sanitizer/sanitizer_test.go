package sanitizer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFreeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{
			name:     "collapses whitespace",
			input:    "  plans   changed \n sorry ",
			maxRunes: 500,
			want:     "plans changed sorry",
		},
		{
			name:     "strips control characters",
			input:    "flight\x00 cancelled\x07",
			maxRunes: 500,
			want:     "flight cancelled",
		},
		{
			name:     "truncates by runes",
			input:    "ремонт крыши",
			maxRunes: 6,
			want:     "ремонт",
		},
		{
			name:     "trims after truncation",
			input:    "pipe burst in kitchen",
			maxRunes: 5,
			want:     "pipe",
		},
		{
			name:     "zero limit keeps everything",
			input:    strings.Repeat("a", 1000),
			maxRunes: 0,
			want:     strings.Repeat("a", 1000),
		},
		{
			name:     "empty",
			input:    "   ",
			maxRunes: 10,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFreeText(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("SanitizeFreeText(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
			if again := SanitizeFreeText(got, tt.maxRunes); again != got {
				t.Errorf("SanitizeFreeText not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSanitizeFreeText_InvalidUTF8(t *testing.T) {
	got := SanitizeFreeText("ok\xff\xfe done", 100)
	if !utf8.ValidString(got) {
		t.Errorf("expected valid UTF-8, got %q", got)
	}
	if got != "ok done" {
		t.Errorf("got %q, want %q", got, "ok done")
	}
}

func TestSanitizeColorCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"#FF8800", "#ff8800"},
		{"ff8800", "#ff8800"},
		{" #abc ", "#abc"},
		{"#abcd", ""},
		{"red", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeColorCode(tt.input); got != tt.want {
				t.Errorf("SanitizeColorCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeID(t *testing.T) {
	if got := SanitizeID("  prop- 42 \n"); got != "prop-42" {
		t.Errorf("SanitizeID() = %q, want %q", got, "prop-42")
	}
}
