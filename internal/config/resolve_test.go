package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBothAbsentYieldsDefaults(t *testing.T) {
	t.Parallel()
	got := Resolve(nil, nil)

	assert.Equal(t, "", got.BotToken)
	assert.False(t, got.HasToken())
	assert.Equal(t, []string{}, got.ChatIDs)
	assert.True(t, got.Enabled)
	assert.Equal(t, FormatHTML, got.Format)
	assert.Equal(t, 3, got.RetryAttempts)
	assert.Equal(t, 30, got.TimeoutSeconds)
	assert.Equal(t, SourceDefault, got.Origins.BotToken)
	assert.Equal(t, SourceDefault, got.Origins.TimeoutSeconds)
}

func TestResolvePrecedencePerField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		primary  *RawConfig
		fallback *RawConfig
		check    func(t *testing.T, got Effective)
	}{
		{
			name:     "primary token wins",
			primary:  &RawConfig{BotToken: ptr("P")},
			fallback: &RawConfig{BotToken: ptr("F")},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, "P", got.BotToken)
				assert.Equal(t, SourceStructured, got.Origins.BotToken)
			},
		},
		{
			name:     "fallback fills missing token",
			primary:  &RawConfig{ChatIDs: []string{"1"}},
			fallback: &RawConfig{BotToken: ptr("F")},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, "F", got.BotToken)
				assert.Equal(t, SourceEnv, got.Origins.BotToken)
				assert.Equal(t, []string{"1"}, got.ChatIDs)
				assert.Equal(t, SourceStructured, got.Origins.ChatIDs)
			},
		},
		{
			name:     "explicit false in primary is kept",
			primary:  &RawConfig{Settings: NotificationSettings{Enabled: ptr(false)}},
			fallback: &RawConfig{Settings: NotificationSettings{Enabled: ptr(true)}},
			check: func(t *testing.T, got Effective) {
				assert.False(t, got.Enabled)
				assert.Equal(t, SourceStructured, got.Origins.Enabled)
			},
		},
		{
			name:     "explicit zero retries in primary is kept",
			primary:  &RawConfig{Settings: NotificationSettings{RetryAttempts: ptr(0)}},
			fallback: &RawConfig{Settings: NotificationSettings{RetryAttempts: ptr(7)}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, 0, got.RetryAttempts)
			},
		},
		{
			name:     "settings merge independently",
			primary:  &RawConfig{Settings: NotificationSettings{Format: ptr(FormatMarkdown)}},
			fallback: &RawConfig{Settings: NotificationSettings{TimeoutSeconds: ptr(5)}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, FormatMarkdown, got.Format)
				assert.Equal(t, 5, got.TimeoutSeconds)
				assert.Equal(t, 3, got.RetryAttempts)
				assert.Equal(t, SourceDefault, got.Origins.RetryAttempts)
			},
		},
		{
			name:     "chat list taken whole, never merged",
			primary:  &RawConfig{ChatIDs: []string{"a", "b"}},
			fallback: &RawConfig{ChatIDs: []string{"c"}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, []string{"a", "b"}, got.ChatIDs)
			},
		},
		{
			name:     "empty primary list falls back",
			primary:  &RawConfig{ChatIDs: []string{}},
			fallback: &RawConfig{ChatIDs: []string{"c"}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, []string{"c"}, got.ChatIDs)
				assert.Equal(t, SourceEnv, got.Origins.ChatIDs)
			},
		},
		{
			name:    "invalid numbers fall back to defaults",
			primary: &RawConfig{Settings: NotificationSettings{RetryAttempts: ptr(-1), TimeoutSeconds: ptr(0)}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, DefaultRetryAttempts, got.RetryAttempts)
				assert.Equal(t, DefaultTimeoutSeconds, got.TimeoutSeconds)
				assert.Equal(t, SourceDefault, got.Origins.RetryAttempts)
			},
		},
		{
			name:     "blank primary token does not hide fallback",
			primary:  &RawConfig{BotToken: ptr("   ")},
			fallback: &RawConfig{BotToken: ptr("F")},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, "F", got.BotToken)
				assert.Equal(t, SourceEnv, got.Origins.BotToken)
			},
		},
		{
			name:     "blank primary chat ids fall back",
			primary:  &RawConfig{ChatIDs: []string{" ", ""}},
			fallback: &RawConfig{ChatIDs: []string{"c"}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, []string{"c"}, got.ChatIDs)
				assert.Equal(t, SourceEnv, got.Origins.ChatIDs)
			},
		},
		{
			name:     "out of range primary numbers fall back",
			primary:  &RawConfig{Settings: NotificationSettings{RetryAttempts: ptr(-1), TimeoutSeconds: ptr(0)}},
			fallback: &RawConfig{Settings: NotificationSettings{RetryAttempts: ptr(5), TimeoutSeconds: ptr(9)}},
			check: func(t *testing.T, got Effective) {
				assert.Equal(t, 5, got.RetryAttempts)
				assert.Equal(t, 9, got.TimeoutSeconds)
				assert.Equal(t, SourceEnv, got.Origins.TimeoutSeconds)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, Resolve(tt.primary, tt.fallback))
		})
	}
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	t.Parallel()
	primary := &RawConfig{ChatIDs: []string{"a", "a"}}
	fallback := &RawConfig{BotToken: ptr("F"), Settings: NotificationSettings{RetryAttempts: ptr(1)}}

	_ = Resolve(primary, fallback)

	assert.Nil(t, primary.BotToken)
	assert.Nil(t, primary.Settings.RetryAttempts)
	assert.Equal(t, []string{"a", "a"}, primary.ChatIDs)
}

func TestResolveDeduplicatesRecipientsInOrder(t *testing.T) {
	t.Parallel()
	got := Resolve(&RawConfig{ChatIDs: []string{"a", "b", "a", " b ", "c"}}, nil)
	assert.Equal(t, []string{"a", "b", "c"}, got.ChatIDs)
}

func TestResolveFlatOnly(t *testing.T) {
	t.Parallel()
	raw, warn := ParseFlat([]byte("TELEGRAM_BOT_TOKEN=X\nTELEGRAM_CHAT_ID=Y\n"))
	require.Empty(t, warn)

	got := Resolve(nil, raw)
	assert.Equal(t, "X", got.BotToken)
	assert.Equal(t, []string{"Y"}, got.ChatIDs)
	assert.True(t, got.Enabled)
	assert.Equal(t, FormatHTML, got.Format)
	assert.Equal(t, 3, got.RetryAttempts)
	assert.Equal(t, 30, got.TimeoutSeconds)
}

func TestEffectiveCloneIsIndependent(t *testing.T) {
	t.Parallel()
	orig := Resolve(&RawConfig{ChatIDs: []string{"a"}}, nil)
	cp := orig.Clone()
	cp.ChatIDs[0] = "z"
	assert.Equal(t, "a", orig.ChatIDs[0])
	assert.Equal(t, Defaults().Clone(), Defaults())
}
