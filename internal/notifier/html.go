package notifier

import (
	"fmt"
	"html"
)

// Esc escapes text for Telegram HTML parse mode.
func Esc(s string) string { return html.EscapeString(s) }

// B wraps escaped text in bold tags.
func B(s string) string { return "<b>" + Esc(s) + "</b>" }

// Code wraps escaped text in a monospace span.
func Code(s string) string { return "<code>" + Esc(s) + "</code>" }

// Link builds an HTML link with both text and URL escaped.
// html.EscapeString also escapes quotes, so the attribute is safe.
func Link(text, url string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}
