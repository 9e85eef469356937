package views

import (
	"strings"
	"unicode"
)

// sanitizeForTerminal removes codepoints that break tcell's width math or the
// layout: skin tone modifiers, zero width joiners, variation selectors, and
// control characters other than newline and tab.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case unicode.IsControl(r):
		return true
	// Skin tone modifiers.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	// Zero Width Joiner.
	case r == 0x200D:
		return true
	// Variation Selectors.
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	// Variation Selectors Supplement.
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// singleLine collapses a multi-line body for table cells.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
