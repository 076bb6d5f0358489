package library

import (
	"strings"
	"unicode/utf8"
)

// Excerpt joins text from the first maxPages pages of a hydrated document,
// capped at maxChars bytes on a rune boundary. Pages that fail to extract
// are skipped. Used to feed the AI summarizer.
func Excerpt(h Handle, maxPages, maxChars int) string {
	var b strings.Builder
	pages := min(maxPages, h.PageCount())
	for i := 1; i <= pages; i++ {
		text, err := h.PageText(i)
		if err != nil || text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
		if b.Len() >= maxChars {
			break
		}
	}
	return truncateUTF8(b.String(), maxChars)
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
