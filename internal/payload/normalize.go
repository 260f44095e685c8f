package payload

import "strings"

// Normalize canonicalizes user-entered or scanned code text: surrounding
// whitespace is trimmed and letters are upper-cased. It never pads or
// truncates — length problems are rejected by the grammar, not repaired here.
// Normalize is idempotent.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DigitsOnly strips every non-digit character from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// SanitizeToken strips every character outside [A-Za-z0-9_-] from s.
// Prize tokens are opaque and case-sensitive, so case is preserved.
func SanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
