package notifier

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tgnotify/internal/config"
	kit "tgnotify/internal/transport"
	logx "tgnotify/pkg/logx"
)

const DefaultWorkers = 8

// Dispatcher delivers a message to every recipient of a resolved config.
// It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	sender  kit.Sender
	log     logx.Logger
	workers int
	retry   RetryPolicy
	limiter *rate.Limiter
}

type Option func(*Dispatcher)

// WithWorkers bounds how many recipients are served concurrently.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRatePerSec paces every attempt through a token bucket. Zero disables pacing.
func WithRatePerSec(r float64) Option {
	return func(d *Dispatcher) {
		if r <= 0 {
			d.limiter = nil
			return
		}
		// burst = rate per sec, so short spikes don't block too hard
		burst := int(r)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) { d.retry = p }
}

func New(sender kit.Sender, log logx.Logger, opts ...Option) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		workers: DefaultWorkers,
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch sends text to every chat in cfg and reports per-recipient outcomes.
//
// It never returns an error and never panics: disabled configs produce an empty
// report with Disabled set, a missing token fails every recipient without
// touching the transport, and cancellation fails whoever is not done yet.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg config.Effective, text string) *Report {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ids := append([]string(nil), cfg.ChatIDs...)
	rep := &Report{Outcomes: make([]Outcome, len(ids))}
	defer func() {
		rep.tally()
		rep.Took = time.Since(start)
	}()

	if !cfg.Enabled {
		rep.Disabled = true
		d.log.Info("notifications disabled; nothing sent", logx.Int("chat_count", len(ids)))
		rep.Outcomes = rep.Outcomes[:0]
		return rep
	}

	if !cfg.HasToken() {
		for i, id := range ids {
			rep.Outcomes[i] = Outcome{ChatID: id, Status: StatusFailed, Err: config.ErrMissingToken}
		}
		d.log.Error("dispatch refused", logx.Err(config.ErrMissingToken), logx.Int("chat_count", len(ids)))
		return rep
	}
	if len(ids) == 0 {
		d.log.Warn("dispatch has no recipients")
		return rep
	}
	if d.sender == nil {
		for i, id := range ids {
			rep.Outcomes[i] = Outcome{ChatID: id, Status: StatusFailed, Err: errors.New("no transport configured")}
		}
		return rep
	}

	var g errgroup.Group
	g.SetLimit(min(len(ids), d.workers))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			rep.Outcomes[i] = cancelledOutcome(id, 0, err)
			continue
		}
		g.Go(func() error {
			rep.Outcomes[i] = d.deliverSafe(ctx, cfg, id, text)
			return nil
		})
	}
	_ = g.Wait()

	rep.tally()
	fields := []logx.Field{
		logx.Int("delivered", rep.Delivered),
		logx.Int("failed", rep.Failed),
		logx.Int("total", len(ids)),
		logx.Duration("took", time.Since(start)),
	}
	if rep.Failed > 0 {
		d.log.Warn("dispatch finished with failures", fields...)
	} else {
		d.log.Info("dispatch finished", fields...)
	}
	return rep
}

func (d *Dispatcher) deliverSafe(ctx context.Context, cfg config.Effective, chatID, text string) (out Outcome) {
	start := time.Now()
	defer func() {
		out.Took = time.Since(start)
		if r := recover(); r != nil {
			d.log.Error("recipient worker panicked",
				logx.String("chat", MaskChatID(chatID)),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			out.ChatID = chatID
			out.Status = StatusFailed
			out.Err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.deliver(ctx, cfg, chatID, text)
}

func (d *Dispatcher) deliver(ctx context.Context, cfg config.Effective, chatID, text string) Outcome {
	out := Outcome{ChatID: chatID, Status: StatusFailed}
	log := d.log.With(logx.String("chat", MaskChatID(chatID)))

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = config.DefaultTimeoutSeconds * time.Second
	}
	maxAttempts := MaxAttempts(cfg.RetryAttempts)
	mode := kit.ParseMode(cfg.Format)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return cancelledOutcome(chatID, out.Attempts, err)
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return cancelledOutcome(chatID, out.Attempts, err)
			}
		}

		out.Attempts = attempt
		actx, cancel := context.WithTimeout(ctx, timeout)
		err := d.sender.Send(actx, cfg.BotToken, chatID, text, mode)
		cancel()
		if err == nil {
			out.Status = StatusDelivered
			out.Err = nil
			log.Debug("message delivered", logx.Int("attempt", attempt))
			return out
		}
		if ctx.Err() != nil {
			return cancelledOutcome(chatID, attempt, err)
		}
		lastErr = err

		if kit.IsPermanent(err) {
			log.Warn("permanent send failure; not retrying", logx.Int("attempt", attempt), logx.Err(err))
			break
		}
		if attempt >= maxAttempts {
			log.Error("all attempts failed", logx.Int("attempts", attempt), logx.Err(err))
			break
		}
		log.Warn("send failed; will retry", logx.Int("attempt", attempt), logx.Int("max", maxAttempts), logx.Err(err))

		delay := d.retry.delay(attempt)
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return cancelledOutcome(chatID, attempt, ctx.Err())
		}
	}

	out.Err = lastErr
	return out
}

// cancelledOutcome records a recipient abandoned because the dispatch context ended.
func cancelledOutcome(chatID string, attempts int, cause error) Outcome {
	err := ErrCancelled
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	return Outcome{ChatID: chatID, Status: StatusFailed, Attempts: attempts, Err: err}
}
