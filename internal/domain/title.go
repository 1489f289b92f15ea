package domain

import (
	"strings"
	"unicode"
)

// PlaceholderTitle names staged files whose probed title is unusable
const PlaceholderTitle = "unknown_title"

// maxTitleBytes keeps "{title}.{ext}" under common filesystem name limits
const maxTitleBytes = 200

// SanitizeTitle keeps letters, digits and the punctuation " -_.!" so the
// result is safe as a file base name.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_.!", r) {
			if b.Len()+len(string(r)) > maxTitleBytes {
				break
			}
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(b.String())
	if strings.Trim(clean, ".") == "" {
		return PlaceholderTitle
	}
	return clean
}

// TruncateTitle shortens a title to at most maxLen characters for button labels
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if maxLen <= 0 || len(runes) <= maxLen {
		return title
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
