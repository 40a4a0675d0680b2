package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tgnotify/internal/config"
	"tgnotify/internal/notifier"
	logx "tgnotify/pkg/logx"
	"tgnotify/pkg/tgtext"
)

// Stats prints the effective configuration and never sends anything.
// An empty recipient list is only a warning here.
func (a *App) Stats() int {
	res := a.loader.Load()
	vr := config.Validate(res.Config, config.ValidateOptions{})
	renderStats(a.out, res, vr)
	if !vr.OK() {
		return ExitInvalid
	}
	return ExitOK
}

// Test dispatches TestMessage.
func (a *App) Test(ctx context.Context) int {
	return a.Send(ctx, TestMessage)
}

// Send resolves the configuration once and dispatches text to every recipient.
func (a *App) Send(ctx context.Context, text string) int {
	if strings.TrimSpace(text) == "" {
		a.log.Error("refusing to send an empty message")
		return ExitInvalid
	}
	res := a.loader.Load()
	rep, code := a.dispatch(ctx, res.Config, text)
	if rep != nil {
		renderReport(a.out, rep)
	}
	return code
}

// dispatch validates cfg and delivers text. A nil report means validation refused.
func (a *App) dispatch(ctx context.Context, cfg config.Effective, text string) (*notifier.Report, int) {
	if cfg.Enabled {
		vr := config.Validate(cfg, config.ValidateOptions{RequireRecipients: !a.opts.AllowEmpty})
		for _, is := range vr.Issues {
			if is.Severity == config.SeverityError {
				a.log.Error("configuration invalid", logx.String("kind", string(is.Kind)), logx.Err(is.Err))
			}
		}
		if !vr.OK() {
			return nil, ExitInvalid
		}
	}

	// Telegram counts characters after entity parsing, so escaped text is
	// measured before escaping.
	if err := tgtext.CheckLen(text); err != nil {
		a.log.Error("message rejected", logx.Err(err))
		return nil, ExitInvalid
	}
	if a.opts.Escape {
		text = tgtext.Escape(text, string(cfg.Format))
	}

	rep := a.disp.Dispatch(ctx, cfg, text)
	if !rep.OK() {
		return rep, ExitFailed
	}
	return rep, ExitOK
}

// Pipe dispatches every non-empty line read from in until EOF or ctx is done.
// Config files are watched and each line uses the latest resolved snapshot.
func (a *App) Pipe(ctx context.Context, in io.Reader) int {
	var current atomic.Pointer[config.Resolution]
	first := a.loader.Load()
	current.Store(first)

	w := &config.Watcher{
		Loader: a.loader,
		OnChange: func(r *config.Resolution) {
			current.Store(r)
		},
	}
	w.Prime(first)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		worst int
		sent  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Watch(gctx)
	})
	g.Go(func() error {
		// EOF ends the pipe; stop the watcher with it.
		defer cancel()

		lines := make(chan string)
		readErr := make(chan error, 1)
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(in)
			sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for sc.Scan() {
				select {
				case lines <- sc.Text():
				case <-gctx.Done():
					return
				}
			}
			readErr <- sc.Err()
		}()

		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					select {
					case err := <-readErr:
						return err
					default:
						return nil
					}
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				rep, code := a.dispatch(gctx, current.Load().Config, line)
				sent++
				if rep != nil {
					renderReport(a.out, rep)
				}
				worst = worse(worst, code)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("pipe stopped", logx.Err(err))
		worst = worse(worst, ExitFailed)
	}
	a.log.Info("pipe finished", logx.Int("messages", sent), logx.Int("exit", worst))
	return worst
}

// worse orders exit codes by severity: invalid > failed > ok.
func worse(a, b int) int {
	rank := func(c int) int {
		switch c {
		case ExitInvalid:
			return 2
		case ExitFailed:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
