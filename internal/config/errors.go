package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken          = errors.New("telegram bot token is not configured")
	ErrNoRecipients          = errors.New("no telegram chat ids configured")
	ErrNotificationsDisabled = errors.New("telegram notifications are disabled")
)

// ParseError reports a structurally malformed configuration source.
// The source it names is treated as absent by the loader.
type ParseError struct {
	Source SourceName
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse %s config %s: %v", e.Source, e.Path, e.Err)
	}
	return fmt.Sprintf("parse %s config: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
