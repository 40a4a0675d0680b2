// Package adapter sends messages through gopkg.in/telebot.v4.
//
// Bots are built in offline mode, so no getMe round-trip happens before the
// first send, and one bot is cached per token.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "tgnotify/internal/transport"
	logx "tgnotify/pkg/logx"
)

type Config struct {
	// URL is the Bot API base; telebot's default is used when empty.
	URL string
	// HTTPTimeout bounds a single Raw call, which cannot take a context.
	// Defaults to 60s.
	HTTPTimeout time.Duration
}

// Adapter implements transport.Sender.
type Adapter struct {
	cfg  Config
	log  logx.Logger
	http *http.Client

	mu   sync.Mutex
	bots map[string]*tele.Bot
}

var _ kit.Sender = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	return &Adapter{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		bots: map[string]*tele.Bot{},
	}
}

func (a *Adapter) bot(token string) (*tele.Bot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.bots[token]; ok {
		return b, nil
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(strings.TrimSpace(a.cfg.URL), "/"),
		Token:   token,
		Client:  a.http,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	a.bots[token] = b
	return b, nil
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type rawResult struct {
	data []byte
	err  error
}

func (a *Adapter) Send(ctx context.Context, token, chatID, text string, mode kit.ParseMode) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return kit.FromNetwork(err, token)
	}
	b, err := a.bot(token)
	if err != nil {
		return &kit.SendError{Kind: kit.Permanent, Err: fmt.Errorf("telebot init: %s", kit.Scrub(err.Error(), token))}
	}

	// Raw has no context parameter; the call is abandoned on ctx done and
	// finishes in the background under the client timeout.
	done := make(chan rawResult, 1)
	go func() {
		data, err := b.Raw("sendMessage", sendMessage{ChatID: chatID, Text: text, ParseMode: string(mode)})
		done <- rawResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return kit.FromNetwork(ctx.Err(), token)
	case r := <-done:
		return classify(r.data, r.err, token)
	}
}

var codeRe = regexp.MustCompile(`\((\d{3})\)\s*$`)

// classify turns a Raw result into a transport error.
func classify(data []byte, err error, token string) error {
	var body struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
	}
	decoded := len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &body) == nil

	if err == nil {
		switch {
		case !decoded:
			return &kit.SendError{Kind: kit.Transient, Err: errors.New("undecodable bot api response")}
		case body.OK:
			return nil
		default:
			return kit.FromStatus(0, body.ErrorCode, kit.Scrub(body.Description, token))
		}
	}

	var te *tele.Error
	if errors.As(err, &te) {
		return kit.FromStatus(0, te.Code, kit.Scrub(te.Description, token))
	}
	if decoded && !body.OK && body.ErrorCode != 0 {
		return kit.FromStatus(0, body.ErrorCode, kit.Scrub(body.Description, token))
	}
	// telebot formats unknown API errors as "telegram: <description> (<code>)"
	if m := codeRe.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return kit.FromStatus(0, code, kit.Scrub(err.Error(), token))
		}
	}
	return kit.FromNetwork(err, token)
}
