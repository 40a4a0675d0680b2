// Package tgtext holds Telegram message text rules: the length limit and
// escaping for the supported parse modes.
package tgtext

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is the sendMessage text limit in characters, counted after
// entity parsing.
const MaxMessageLen = 4096

var ErrTooLong = errors.New("tgtext: message too long")

// CheckLen rejects text longer than MaxMessageLen characters.
//
// Pass the visible text: for input that will go through Escape, check it
// before escaping. Markup in pre-formatted text is counted too, so such text
// may be rejected even though Telegram would accept it.
func CheckLen(text string) error {
	if n := utf8.RuneCountInString(text); n > MaxMessageLen {
		return fmt.Errorf("%w: %d > %d characters", ErrTooLong, n, MaxMessageLen)
	}
	return nil
}

// Escape makes plain text safe for the given parse mode ("HTML" or "Markdown").
// Unknown modes return text unchanged.
func Escape(text, mode string) string {
	switch {
	case strings.EqualFold(mode, "HTML"):
		return html.EscapeString(text)
	case strings.EqualFold(mode, "Markdown"):
		return markdownEscaper.Replace(text)
	default:
		return text
	}
}

// legacy Markdown only reserves these four
var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)
