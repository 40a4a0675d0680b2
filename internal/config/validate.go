package config

import (
	"errors"
	"strings"
)

// Kind classifies a validation finding.
type Kind string

const (
	KindMissingToken          Kind = "missing_token"
	KindNoRecipients          Kind = "no_recipients"
	KindNotificationsDisabled Kind = "notifications_disabled"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Issue is one validation finding.
type Issue struct {
	Kind     Kind
	Severity Severity
	Err      error
}

func (i Issue) String() string { return i.Severity.String() + ": " + i.Err.Error() }

// ValidateOptions selects the policy for findings whose severity depends on intent.
type ValidateOptions struct {
	// RequireRecipients makes an empty chat id list an error rather than a warning.
	// Set it when the caller is about to send.
	RequireRecipients bool
}

// Result is the multi-valued outcome of Validate.
type Result struct {
	Issues []Issue
}

// OK reports whether no error-severity issue was found.
func (r Result) OK() bool { return r.Err() == nil }

func (r Result) Has(k Kind) bool {
	for _, is := range r.Issues {
		if is.Kind == k {
			return true
		}
	}
	return false
}

// Err joins the error-severity findings; nil when there are none.
func (r Result) Err() error {
	var errs []error
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			errs = append(errs, is.Err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks that cfg is sufficient to attempt delivery.
// Checks are independent; cfg is never modified.
func Validate(cfg Effective, opts ValidateOptions) Result {
	var r Result
	if strings.TrimSpace(cfg.BotToken) == "" {
		r.Issues = append(r.Issues, Issue{Kind: KindMissingToken, Severity: SeverityError, Err: ErrMissingToken})
	}
	if len(cfg.ChatIDs) == 0 {
		sev := SeverityWarning
		if opts.RequireRecipients {
			sev = SeverityError
		}
		r.Issues = append(r.Issues, Issue{Kind: KindNoRecipients, Severity: sev, Err: ErrNoRecipients})
	}
	if !cfg.Enabled {
		r.Issues = append(r.Issues, Issue{Kind: KindNotificationsDisabled, Severity: SeverityInfo, Err: ErrNotificationsDisabled})
	}
	return r
}
