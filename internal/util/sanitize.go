package util

import (
	"net/mail"
	"strings"
	"unicode"

	"go-stay-portal/pkg/apierror"
)

// SanitizeText trims free-form guest input, drops control and invisible
// characters and truncates to maxRunes (0 means no limit). Newlines and tabs
// survive so special requests keep their layout.
func SanitizeText(input string, maxRunes int) string {
	trimmed := strings.TrimSpace(input)

	builder := strings.Builder{}
	builder.Grow(len(trimmed))

	for _, char := range trimmed {
		if char == '\n' || char == '\t' {
			builder.WriteRune(char)
			continue
		}
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(builder.String())

	// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
	if maxRunes > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxRunes {
			cleaned = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}

	return cleaned
}

// SanitizeName is SanitizeText for single-line fields.
func SanitizeName(input string) string {
	return strings.Join(strings.Fields(SanitizeText(input, 100)), " ")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits and a leading +.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return false
	}

	at := strings.LastIndex(normalized, "@")
	domain := normalized[at+1:]
	return len(domain) > 2 && strings.Contains(domain, ".")
}

func IsValidPhone(phone string) bool {
	digits := strings.TrimPrefix(NormalizePhone(phone), "+")
	return len(digits) >= 7 && len(digits) <= 15
}

// CardLast4 returns the last four digits of a card number, or "".
func CardLast4(number string) string {
	digits := strings.TrimPrefix(NormalizePhone(number), "+")
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

// RequireText returns a 400 APIError naming field when value is blank.
func RequireText(field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return apierror.New("VALIDATION_ERROR", field+" is required", field, 400)
	}
	return nil
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF': // Zero-Width No-Break Space / BOM
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
