package config

import (
	"strings"
	"time"

	"dario.cat/mergo"
)

const (
	DefaultEnabled        = true
	DefaultFormat         = FormatHTML
	DefaultRetryAttempts  = 3
	DefaultTimeoutSeconds = 30
)

// Effective is the fully resolved configuration. Every field is defined.
// Treat it as immutable once returned by Resolve; use Clone to derive a copy.
type Effective struct {
	BotToken       string
	ChatIDs        []string
	Enabled        bool
	Format         Format
	RetryAttempts  int
	TimeoutSeconds int

	// Origins records which source supplied each field.
	Origins Origins
}

type Origins struct {
	BotToken       SourceName
	ChatIDs        SourceName
	Enabled        SourceName
	Format         SourceName
	RetryAttempts  SourceName
	TimeoutSeconds SourceName
}

func (e Effective) HasToken() bool { return strings.TrimSpace(e.BotToken) != "" }

func (e Effective) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func (e Effective) Clone() Effective {
	cp := e
	cp.ChatIDs = make([]string, len(e.ChatIDs))
	copy(cp.ChatIDs, e.ChatIDs)
	return cp
}

// Defaults returns the configuration used when no source sets anything.
func Defaults() Effective {
	return Effective{
		ChatIDs:        []string{},
		Enabled:        DefaultEnabled,
		Format:         DefaultFormat,
		RetryAttempts:  DefaultRetryAttempts,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Origins: Origins{
			BotToken:       SourceDefault,
			ChatIDs:        SourceDefault,
			Enabled:        SourceDefault,
			Format:         SourceDefault,
			RetryAttempts:  SourceDefault,
			TimeoutSeconds: SourceDefault,
		},
	}
}

// Resolve merges primary over fallback, field by field, and fills the rest with defaults.
//
// Scalars come from the first source that sets them. The chat id list is taken
// whole from the first source with a non-empty list and is never merged element-wise.
// Either argument may be nil. Resolve never fails.
func Resolve(primary, fallback *RawConfig) Effective {
	return resolveNamed(named{primary, SourceStructured}, named{fallback, SourceEnv})
}

type named struct {
	raw  *RawConfig
	name SourceName
}

func resolveNamed(sources ...named) Effective {
	var merged RawConfig
	out := Defaults()

	for _, src := range sources {
		if src.raw == nil {
			continue
		}
		raw := usable(*src.raw)
		before := merged
		// WithoutDereference: a pointer already set in merged is kept as-is
		// (even when it points at false/0); only nil pointers and empty slices are filled.
		if err := mergo.Merge(&merged, raw, mergo.WithoutDereference); err != nil {
			// Both sides share one type, mergo cannot fail here; skip the source defensively.
			continue
		}
		noteOrigins(&out.Origins, before, merged, src.name)
	}

	if merged.BotToken != nil {
		out.BotToken = *merged.BotToken
	}
	if len(merged.ChatIDs) > 0 {
		out.ChatIDs = merged.ChatIDs
	}
	s := merged.Settings
	if s.Enabled != nil {
		out.Enabled = *s.Enabled
	}
	if s.Format != nil {
		out.Format = *s.Format
	}
	if s.RetryAttempts != nil {
		out.RetryAttempts = *s.RetryAttempts
	}
	if s.TimeoutSeconds != nil {
		out.TimeoutSeconds = *s.TimeoutSeconds
	}
	return out
}

// usable returns a copy of raw with every value that cannot be used unset,
// so a blank or out-of-range field never hides a lower-precedence source.
func usable(raw RawConfig) RawConfig {
	out := RawConfig{ChatIDs: dedupChatIDs(raw.ChatIDs)}
	if raw.BotToken != nil {
		if tok := strings.TrimSpace(*raw.BotToken); tok != "" {
			out.BotToken = &tok
		}
	}
	s := raw.Settings
	out.Settings.Enabled = s.Enabled
	if s.Format != nil {
		if f, ok := ParseFormat(string(*s.Format)); ok {
			out.Settings.Format = &f
		}
	}
	if s.RetryAttempts != nil && *s.RetryAttempts >= 0 {
		out.Settings.RetryAttempts = s.RetryAttempts
	}
	if s.TimeoutSeconds != nil && *s.TimeoutSeconds > 0 {
		out.Settings.TimeoutSeconds = s.TimeoutSeconds
	}
	return out
}

// noteOrigins marks the fields that src filled during the last merge step.
func noteOrigins(o *Origins, before, after RawConfig, src SourceName) {
	if before.BotToken == nil && after.BotToken != nil {
		o.BotToken = src
	}
	if len(before.ChatIDs) == 0 && len(after.ChatIDs) > 0 {
		o.ChatIDs = src
	}
	b, a := before.Settings, after.Settings
	if b.Enabled == nil && a.Enabled != nil {
		o.Enabled = src
	}
	if b.Format == nil && a.Format != nil {
		o.Format = src
	}
	if b.RetryAttempts == nil && a.RetryAttempts != nil {
		o.RetryAttempts = src
	}
	if b.TimeoutSeconds == nil && a.TimeoutSeconds != nil {
		o.TimeoutSeconds = src
	}
}

// dedupChatIDs trims ids, drops empty ones and keeps the first occurrence of each.
func dedupChatIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
