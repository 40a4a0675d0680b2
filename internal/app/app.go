// Package app wires configuration loading, validation, the dispatcher and a
// transport into the operations the CLI exposes.
package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tgnotify/internal/config"
	"tgnotify/internal/notifier"
	kit "tgnotify/internal/transport"
	telegram "tgnotify/internal/transport/telegram/adapter"
	"tgnotify/internal/transport/telegram/httpapi"
	logx "tgnotify/pkg/logx"
)

// Exit codes returned by every operation.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitInvalid = 2
)

const (
	TransportHTTP    = "http"
	TransportTelebot = "telebot"
)

// TestMessage is sent by the --test operation.
const TestMessage = "🧪 Test message: tgnotify is working! (multi-recipient)"

type Options struct {
	StructuredPath   string
	EnvPath          string
	IgnoreProcessEnv bool

	Transport  string
	APIURL     string
	Workers    int
	RatePerSec float64
	// AllowEmpty lets send operations succeed with zero recipients.
	AllowEmpty bool
	// Escape treats messages as plain text and escapes them for the parse mode.
	Escape     bool

	Log logx.Config
}

type App struct {
	opts Options
	out  io.Writer

	log    logx.Logger
	logs   *logx.Service
	loader *config.Loader
	disp   *notifier.Dispatcher
}

// UsageError marks invalid options; the CLI maps it to ExitInvalid.
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return e.Msg }

// New validates opts and builds the app. Human-readable results go to out,
// logs go to the configured log sinks (stderr by default).
func New(opts Options, out io.Writer) (*App, error) {
	if out == nil {
		out = logx.Stdout()
	}
	if opts.Log.Level != "" && !logx.ValidLevel(opts.Log.Level) {
		return nil, &UsageError{Msg: fmt.Sprintf("invalid log level %q", opts.Log.Level)}
	}
	if opts.Workers < 0 {
		return nil, &UsageError{Msg: "workers must be >= 0"}
	}
	if opts.RatePerSec < 0 {
		return nil, &UsageError{Msg: "rate must be >= 0"}
	}
	logSvc, log := logx.New(opts.Log)
	return newWithLogger(opts, out, logSvc, log)
}

func newWithLogger(opts Options, out io.Writer, logSvc *logx.Service, log logx.Logger) (*App, error) {
	sender, err := buildSender(opts, log)
	if err != nil {
		if logSvc != nil {
			_ = logSvc.Close()
		}
		return nil, err
	}

	loader := &config.Loader{
		StructuredPath:   opts.StructuredPath,
		EnvPath:          opts.EnvPath,
		IgnoreProcessEnv: opts.IgnoreProcessEnv,
		Log:              log.With(logx.String("comp", "config")),
	}
	disp := notifier.New(sender, log.With(logx.String("comp", "notifier")),
		notifier.WithWorkers(opts.Workers),
		notifier.WithRatePerSec(opts.RatePerSec),
	)

	return &App{
		opts:   opts,
		out:    out,
		log:    log.With(logx.String("comp", "app")),
		logs:   logSvc,
		loader: loader,
		disp:   disp,
	}, nil
}

func buildSender(opts Options, log logx.Logger) (kit.Sender, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", TransportHTTP:
		return httpapi.New(httpapi.Config{BaseURL: opts.APIURL}, log.With(logx.String("comp", "transport.http"))), nil
	case TransportTelebot:
		return telegram.New(telegram.Config{URL: opts.APIURL, HTTPTimeout: 2 * time.Minute}, log.With(logx.String("comp", "transport.telebot"))), nil
	default:
		return nil, &UsageError{Msg: fmt.Sprintf("unknown transport %q (want %s or %s)", opts.Transport, TransportHTTP, TransportTelebot)}
	}
}

func (a *App) Close() error {
	if a.logs == nil {
		return nil
	}
	return a.logs.Close()
}
