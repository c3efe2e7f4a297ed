package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reHexColor = regexp.MustCompile(`^#?([0-9a-f]{3}|[0-9a-f]{6})$`)

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
}

func truncate(maxRunes int) Strategy {
	return func(s string) string {
		if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
			return s
		}
		runes := []rune(s)
		return strings.TrimSpace(string(runes[:maxRunes]))
	}
}

// SanitizeFreeText cleans a human-written note such as a cancellation reason.
// maxRunes <= 0 disables truncation.
func SanitizeFreeText(input string, maxRunes int) string {
	p := Pipeline{
		stripControl,
		TrimAndNormalize,
		truncate(maxRunes),
	}
	return p.Apply(input)
}

// SanitizeColorCode returns a lowercase "#rrggbb" or "#rgb" code, or "" when
// the input is not a hex color.
func SanitizeColorCode(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" || !reHexColor.MatchString(s) {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	return s
}

// SanitizeID trims an opaque identifier; internal whitespace is never valid in one.
func SanitizeID(input string) string {
	return strings.Join(strings.Fields(input), "")
}
