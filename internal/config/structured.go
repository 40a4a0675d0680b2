package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Values shipped in the sample telegram_config.json. They are never real credentials.
var (
	sampleToken   = "BOT_TOKEN_BURAYA"
	sampleChatIDs = map[string]struct{}{
		"123456789": {},
		"987654321": {},
		"112233445": {},
	}
)

type structuredDoc struct {
	BotToken json.RawMessage `json:"telegram_bot_token"`
	ChatIDs  json.RawMessage `json:"telegram_chat_ids"`
	Settings json.RawMessage `json:"notification_settings"`
}

type settingsDoc struct {
	Enabled       json.RawMessage `json:"enable_notifications"`
	MessageFormat json.RawMessage `json:"message_format"`
	RetryAttempts json.RawMessage `json:"retry_attempts"`
	Timeout       json.RawMessage `json:"timeout"`
}

// ParseStructured parses a telegram_config document (JSON, or YAML when format is DocYAML).
//
// Missing keys map to absent fields and unknown keys are ignored. Values of the
// wrong shape are dropped and reported in the returned warnings. Only malformed
// documents produce an error, always a *ParseError.
func ParseStructured(data []byte, format string) (*RawConfig, []string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &RawConfig{}, nil, nil
	}
	jb, err := coerceToJSONBytes(format, data)
	if err != nil {
		return nil, nil, &ParseError{Source: SourceStructured, Err: err}
	}

	var doc structuredDoc
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, &ParseError{Source: SourceStructured, Err: err}
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after document")
		}
		return nil, nil, &ParseError{Source: SourceStructured, Err: err}
	}

	var (
		raw  RawConfig
		warn []string
	)
	warnf := func(format string, args ...any) { warn = append(warn, fmt.Sprintf(format, args...)) }

	if s, ok, err := rawString(doc.BotToken); err != nil {
		warnf("telegram_bot_token: %v", err)
	} else if ok {
		s = strings.TrimSpace(s)
		switch {
		case s == "":
		case s == sampleToken:
			warnf("telegram_bot_token: sample placeholder value ignored")
		default:
			raw.BotToken = ptr(s)
		}
	}

	ids, err := parseChatIDs(doc.ChatIDs)
	if err != nil {
		warnf("telegram_chat_ids: %v", err)
	}
	for _, id := range ids {
		if _, fake := sampleChatIDs[id]; fake {
			warnf("telegram_chat_ids: sample placeholder %q ignored", id)
			continue
		}
		raw.ChatIDs = append(raw.ChatIDs, id)
	}

	if !isNull(doc.Settings) {
		var sd settingsDoc
		sdec := json.NewDecoder(bytes.NewReader(doc.Settings))
		sdec.UseNumber()
		if err := sdec.Decode(&sd); err != nil {
			warnf("notification_settings: expected an object: %v", err)
		} else {
			parseSettings(&raw.Settings, sd, warnf)
		}
	}

	return &raw, warn, nil
}

func parseSettings(out *NotificationSettings, sd settingsDoc, warnf func(string, ...any)) {
	if !isNull(sd.Enabled) {
		if b, err := rawBool(sd.Enabled); err != nil {
			warnf("notification_settings.enable_notifications: %v", err)
		} else {
			out.Enabled = ptr(b)
		}
	}

	if s, ok, err := rawString(sd.MessageFormat); err != nil {
		warnf("notification_settings.message_format: %v", err)
	} else if ok {
		if f, valid := ParseFormat(s); valid {
			out.Format = ptr(f)
		} else {
			warnf("notification_settings.message_format: unsupported format %q", s)
		}
	}

	if s, ok := rawScalar(sd.RetryAttempts); ok {
		if n, err := parseRetryAttempts(s); err != nil {
			warnf("notification_settings.retry_attempts: %v", err)
		} else {
			out.RetryAttempts = ptr(n)
		}
	} else if !isNull(sd.RetryAttempts) {
		warnf("notification_settings.retry_attempts: expected an integer")
	}

	if s, ok := rawScalar(sd.Timeout); ok {
		if n, err := parseTimeoutSeconds(s); err != nil {
			warnf("notification_settings.timeout: %v", err)
		} else {
			out.TimeoutSeconds = ptr(n)
		}
	} else if !isNull(sd.Timeout) {
		warnf("notification_settings.timeout: expected an integer")
	}
}

// parseChatIDs accepts an array of strings and/or numbers.
// Entries of other shapes are skipped and reported.
func parseChatIDs(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New("expected an array")
	}
	out := make([]string, 0, len(items))
	var bad []string
	for i, it := range items {
		s, ok := rawScalar(it)
		if !ok {
			bad = append(bad, strconv.Itoa(i))
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("entries %s are not strings or numbers", strings.Join(bad, ","))
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// rawString decodes a JSON string. ok is false when the value is absent or null.
func rawString(raw json.RawMessage) (s string, ok bool, err error) {
	if isNull(raw) {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, errors.New("expected a string")
	}
	return s, true, nil
}

// rawScalar renders a JSON string or number as text.
func rawScalar(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), true
	}
	return "", false
}

func rawBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	if s, ok := rawScalar(raw); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return v, nil
		}
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return false, errors.New("expected a boolean")
}
