package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvChatID   = "TELEGRAM_CHAT_ID"
)

// flatEnv lists the only keys the flat source understands.
type flatEnv struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `env:"TELEGRAM_CHAT_ID"`
}

// ParseFlat parses KEY=VALUE lines. It never fails: blank lines and comments
// are skipped, malformed lines are reported in the warnings and ignored.
func ParseFlat(data []byte) (*RawConfig, []string) {
	vars, warn := parseEnvLines(data)
	raw, err := FromEnv(vars)
	if err != nil {
		warn = append(warn, err.Error())
	}
	return raw, warn
}

// FromEnv builds a RawConfig from an already split environment.
// Only TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are read.
func FromEnv(vars map[string]string) (*RawConfig, error) {
	var fe flatEnv
	if err := env.ParseWithOptions(&fe, env.Options{Environment: vars}); err != nil {
		return &RawConfig{}, fmt.Errorf("env: %w", err)
	}

	raw := &RawConfig{}
	if tok := strings.TrimSpace(fe.BotToken); tok != "" {
		raw.BotToken = ptr(tok)
	}
	if id := strings.TrimSpace(fe.ChatID); id != "" {
		raw.ChatIDs = []string{id}
	}
	return raw, nil
}

func parseEnvLines(data []byte) (map[string]string, []string) {
	vars := map[string]string{}
	var warn []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			warn = append(warn, fmt.Sprintf("line %d: not a KEY=VALUE pair, ignored", n))
			continue
		}
		vars[key] = unquoteEnvValue(strings.TrimSpace(val))
	}
	if err := sc.Err(); err != nil {
		warn = append(warn, fmt.Sprintf("line %d: %v", n+1, err))
	}
	return vars, warn
}

func unquoteEnvValue(v string) string {
	if len(v) >= 2 {
		if q := v[0]; (q == '"' || q == '\'') && v[len(v)-1] == q {
			return v[1 : len(v)-1]
		}
	}
	// unquoted values may carry a trailing " # comment"
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}
