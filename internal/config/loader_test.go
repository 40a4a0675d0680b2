package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func newTestLoader(dir string, environ ...string) *Loader {
	return &Loader{
		StructuredPath: filepath.Join(dir, "config", "telegram_config.json"),
		EnvPath:        filepath.Join(dir, ".env"),
		environ:        func() []string { return environ },
	}
}

func TestLoaderNoSources(t *testing.T) {
	t.Parallel()
	res := newTestLoader(t.TempDir()).Load()

	assert.False(t, res.Structured.Found)
	assert.False(t, res.Env.Found)
	assert.NoError(t, res.Structured.Err)
	assert.Equal(t, Defaults(), res.Config)
}

func TestLoaderStructuredOverEnvFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := newTestLoader(dir)
	writeFile(t, l.StructuredPath, `{"telegram_chat_ids": ["1", "2"], "notification_settings": {"retry_attempts": 0}}`)
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=from-env\nTELEGRAM_CHAT_ID=9\n")

	res := l.Load()
	require.NoError(t, res.Structured.Err)
	assert.Equal(t, "from-env", res.Config.BotToken)
	assert.Equal(t, []string{"1", "2"}, res.Config.ChatIDs)
	assert.Equal(t, 0, res.Config.RetryAttempts)
	assert.Equal(t, SourceEnv, res.Config.Origins.BotToken)
	assert.Equal(t, SourceStructured, res.Config.Origins.ChatIDs)
}

func TestLoaderMalformedStructuredIsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := newTestLoader(dir)
	writeFile(t, l.StructuredPath, `{"telegram_bot_token": "x",`)
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=X\nTELEGRAM_CHAT_ID=Y\n")

	res := l.Load()
	require.Error(t, res.Structured.Err)
	var pe *ParseError
	require.True(t, errors.As(res.Structured.Err, &pe))
	assert.Equal(t, l.StructuredPath, pe.Path)
	assert.True(t, res.Structured.Found)
	assert.Nil(t, res.Structured.Raw)

	assert.Equal(t, "X", res.Config.BotToken)
	assert.Equal(t, []string{"Y"}, res.Config.ChatIDs)
}

func TestLoaderProcessEnvWinsOverFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := newTestLoader(dir, "TELEGRAM_BOT_TOKEN=proc", "TELEGRAM_CHAT_ID=", "PATH=/bin")
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=file\nTELEGRAM_CHAT_ID=7\n")

	res := l.Load()
	assert.Equal(t, "proc", res.Config.BotToken)
	assert.Equal(t, []string{"7"}, res.Config.ChatIDs)

	l.IgnoreProcessEnv = true
	assert.Equal(t, "file", l.Load().Config.BotToken)
}

func TestLoaderYAMLStructured(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := newTestLoader(dir)
	l.StructuredPath = filepath.Join(dir, "telegram.yaml")
	writeFile(t, l.StructuredPath, "telegram_bot_token: tok\ntelegram_chat_ids: [5]\n")

	res := l.Load()
	assert.Equal(t, "tok", res.Config.BotToken)
	assert.Equal(t, []string{"5"}, res.Config.ChatIDs)
}
