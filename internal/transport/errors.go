package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	ErrTransient = errors.New("transient send failure")
	ErrPermanent = errors.New("permanent send failure")
)

// Kind tells the dispatcher whether a failed send is worth retrying.
type Kind int

const (
	Transient Kind = iota
	Permanent
)

func (k Kind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// SendError is a classified delivery failure.
type SendError struct {
	Kind Kind
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Code and Description come from the Bot API error body when present.
	Code        int
	Description string
	Err         error
}

func (e *SendError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" send failure")
	if e.Code != 0 {
		fmt.Fprintf(&b, ": telegram %d", e.Code)
	} else if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SendError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransient) and errors.Is(err, ErrPermanent) work.
func (e *SendError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Kind == Transient
	case ErrPermanent:
		return e.Kind == Permanent
	}
	return false
}

// Classify maps an HTTP status (or Bot API error_code) to a Kind.
// 4xx is permanent except 408 and 429; everything else is transient.
func Classify(status int) Kind {
	if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		return Permanent
	}
	return Transient
}

// IsPermanent reports whether err must not be retried.
// Unclassified errors count as transient.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind == Permanent
	}
	return false
}

// FromStatus builds a SendError for a non-success Bot API response.
func FromStatus(status, code int, description string) *SendError {
	c := code
	if c == 0 {
		c = status
	}
	return &SendError{Kind: Classify(c), StatusCode: status, Code: code, Description: description}
}

// FromNetwork wraps an error that happened before a response was read.
// Context errors are kept unwrapped inside so callers can still match them.
func FromNetwork(err error, token string) *SendError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Kind: Transient, Err: err}
	}
	return &SendError{Kind: Transient, Err: scrubbedError{err: err, msg: Scrub(err.Error(), token)}}
}

var botPathRe = regexp.MustCompile(`/bot[0-9]+:[A-Za-z0-9_-]+`)

// Scrub removes a bot token from s, both verbatim and inside /bot<token>/ URL paths.
func Scrub(s, token string) string {
	if t := strings.TrimSpace(token); t != "" {
		s = strings.ReplaceAll(s, t, "<redacted>")
	}
	return botPathRe.ReplaceAllString(s, "/bot<redacted>")
}

// scrubbedError keeps the original chain for errors.Is/As but prints a token-free message.
type scrubbedError struct {
	err error
	msg string
}

func (e scrubbedError) Error() string { return e.msg }
func (e scrubbedError) Unwrap() error { return e.err }
