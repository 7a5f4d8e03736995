package telegram

import "strings"

// EscapeMarkdownV2 escapes every character Telegram's MarkdownV2 dialect
// treats as formatting control, so arbitrary subject names and numbers can
// be embedded in a formatted message verbatim. The caller is responsible
// for escaping each literal fragment exactly once, before any formatting
// markers are added around it.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
