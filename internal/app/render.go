package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"tgnotify/internal/config"
	"tgnotify/internal/notifier"
)

func renderStats(w io.Writer, res *config.Resolution, vr config.Result) {
	cfg := res.Config
	fmt.Fprintln(w, "Telegram notifier")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string, origin config.SourceName) {
		fmt.Fprintf(tw, "  %s\t%s\t(%s)\n", k, v, origin)
	}
	o := cfg.Origins
	row("enabled", fmt.Sprint(cfg.Enabled), o.Enabled)
	row("bot_token", maskToken(cfg.BotToken), o.BotToken)
	row("chat_count", fmt.Sprint(len(cfg.ChatIDs)), o.ChatIDs)
	row("message_format", string(cfg.Format), o.Format)
	row("retry_attempts", fmt.Sprint(cfg.RetryAttempts), o.RetryAttempts)
	row("timeout", fmt.Sprintf("%ds", cfg.TimeoutSeconds), o.TimeoutSeconds)
	_ = tw.Flush()

	if len(cfg.ChatIDs) > 0 {
		masked := make([]string, len(cfg.ChatIDs))
		for i, id := range cfg.ChatIDs {
			masked[i] = notifier.MaskChatID(id)
		}
		fmt.Fprintf(w, "  chats: %s\n", strings.Join(masked, ", "))
	}

	fmt.Fprintln(w, "Sources")
	for _, src := range []config.Source{res.Structured, res.Env} {
		fmt.Fprintf(w, "  %s: %s\n", src.Name, sourceStatus(src))
	}

	if len(vr.Issues) > 0 {
		fmt.Fprintln(w, "Findings")
		for _, is := range vr.Issues {
			fmt.Fprintf(w, "  %s\n", is)
		}
	}
}

func sourceStatus(src config.Source) string {
	path := src.Path
	if path == "" {
		path = "(process env)"
	}
	switch {
	case src.Err != nil:
		return fmt.Sprintf("%s unusable: %v", path, src.Err)
	case !src.Found:
		return path + " not found"
	case len(src.Warnings) > 0:
		return fmt.Sprintf("%s loaded, %d value(s) ignored", path, len(src.Warnings))
	default:
		return path + " loaded"
	}
}

// maskToken keeps the public bot id and hides the secret part.
func maskToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "not configured"
	}
	if id, _, ok := strings.Cut(tok, ":"); ok && id != "" {
		return id + ":***"
	}
	return "***"
}

func renderReport(w io.Writer, rep *notifier.Report) {
	if rep.Disabled {
		fmt.Fprintln(w, "notifications are disabled; nothing sent")
		return
	}
	total := len(rep.Outcomes)
	fmt.Fprintf(w, "sent to %d/%d recipient(s) in %s\n", rep.Delivered, total, rep.Took.Round(time.Millisecond))
	for _, o := range rep.Failures() {
		fmt.Fprintf(w, "  %s failed after %d attempt(s): %v\n", notifier.MaskChatID(o.ChatID), o.Attempts, o.Err)
	}
}
