package config

import "strings"

// SourceName identifies where a configuration value came from.
type SourceName string

const (
	SourceStructured SourceName = "structured"
	SourceEnv        SourceName = "env"
	SourceDefault    SourceName = "default"
)

// Format is the Telegram parse mode used for outgoing messages.
type Format string

const (
	FormatHTML     Format = "HTML"
	FormatMarkdown Format = "Markdown"
)

// ParseFormat matches s case-insensitively against the supported formats.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return FormatHTML, true
	case "markdown":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// RawConfig is the typed, partial configuration read from one source.
// A nil pointer or an empty slice means "not set by this source".
type RawConfig struct {
	BotToken *string
	ChatIDs  []string
	Settings NotificationSettings
}

// NotificationSettings holds the optional delivery knobs.
// Each field is optional independently of the others.
type NotificationSettings struct {
	Enabled        *bool
	Format         *Format
	RetryAttempts  *int
	TimeoutSeconds *int
}

// IsEmpty reports whether the source set nothing at all.
func (r *RawConfig) IsEmpty() bool {
	if r == nil {
		return true
	}
	s := r.Settings
	return r.BotToken == nil && len(r.ChatIDs) == 0 &&
		s.Enabled == nil && s.Format == nil && s.RetryAttempts == nil && s.TimeoutSeconds == nil
}

func ptr[T any](v T) *T { return &v }
