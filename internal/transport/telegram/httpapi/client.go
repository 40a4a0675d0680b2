// Package httpapi sends messages through the Telegram Bot API over plain HTTPS
// using resty.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	kit "tgnotify/internal/transport"
	logx "tgnotify/pkg/logx"
)

const DefaultBaseURL = "https://api.telegram.org"

type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient replaces the underlying client, e.g. for proxies.
	HTTPClient *http.Client
	// Timeout is a hard ceiling per request on top of the caller's context.
	// Zero leaves the bound to the context alone.
	Timeout time.Duration
}

// Client implements transport.Sender.
type Client struct {
	rc  *resty.Client
	log logx.Logger
}

var _ kit.Sender = (*Client)(nil)

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetLogger(restyLogger{log: log.With(logx.String("comp", "resty"))})
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	return &Client{rc: rc, log: log}
}

// Send posts one sendMessage call. The dispatcher owns retries, so the
// resty retry machinery stays off.
func (c *Client) Send(ctx context.Context, token, chatID, text string, mode kit.ParseMode) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetBody(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: string(mode)}).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return kit.FromNetwork(err, token)
	}
	return decodeResponse(resp.StatusCode(), resp.Body(), token)
}

func decodeResponse(status int, body []byte, token string) error {
	var out apiResponse
	decErr := json.Unmarshal(body, &out)

	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		if decErr != nil {
			// a proxy answering 200 with HTML proves nothing was delivered
			return &kit.SendError{Kind: kit.Transient, StatusCode: status, Err: fmt.Errorf("decode response: %w", decErr)}
		}
		if out.OK {
			return nil
		}
		return kit.FromStatus(status, out.ErrorCode, kit.Scrub(out.Description, token))
	}

	if decErr != nil {
		return &kit.SendError{Kind: kit.Classify(status), StatusCode: status, Err: errors.New(http.StatusText(status))}
	}
	return kit.FromStatus(status, out.ErrorCode, kit.Scrub(out.Description, token))
}

// restyLogger routes resty's own diagnostics into logx.
type restyLogger struct {
	log logx.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(kit.Scrub(strings.TrimSpace(fmt.Sprintf(format, v...)), ""))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(kit.Scrub(strings.TrimSpace(fmt.Sprintf(format, v...)), ""))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(kit.Scrub(strings.TrimSpace(fmt.Sprintf(format, v...)), ""))
}
