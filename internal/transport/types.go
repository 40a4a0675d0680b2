// Package transport defines the single-message delivery contract used by the
// dispatcher and the error taxonomy every implementation reports through.
package transport

import "context"

// ParseMode is the Telegram parse_mode attached to a message.
type ParseMode string

const (
	ParseModeHTML     ParseMode = "HTML"
	ParseModeMarkdown ParseMode = "Markdown"
)

// Sender delivers one text message to one chat.
//
// Implementations must honour ctx, return nil only when the platform
// acknowledged the message, and report failures as *SendError whenever the
// failure can be classified.
type Sender interface {
	Send(ctx context.Context, token, chatID, text string, mode ParseMode) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, token, chatID, text string, mode ParseMode) error

func (f SenderFunc) Send(ctx context.Context, token, chatID, text string, mode ParseMode) error {
	return f(ctx, token, chatID, text, mode)
}
