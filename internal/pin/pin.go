// Package pin normalizes donor referral codes typed on localized keyboards.
package pin

import "strings"

const (
	persianZero = '۰' // U+06F0
	persianNine = '۹'
	arabicZero  = '٠' // U+0660
	arabicNine  = '٩'
)

// Normalize strips whitespace and zero-width marks and maps Persian and
// Arabic-Indic digit glyphs to ASCII digits. It is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == '\u200c' || r == '\u200b' || r == '\ufeff':
			// zero-width non-joiner / space / BOM
		case r >= persianZero && r <= persianNine:
			b.WriteRune('0' + (r - persianZero))
		case r >= arabicZero && r <= arabicNine:
			b.WriteRune('0' + (r - arabicZero))
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// IsDigits reports whether s is non-empty and consists of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
