package notifier

import (
	"errors"
	"time"
)

// ErrCancelled marks recipients that were not delivered because the caller's
// context ended.
var ErrCancelled = errors.New("dispatch cancelled")

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Outcome is the result for one recipient. Err is non-nil iff Status is failed.
type Outcome struct {
	ChatID   string
	Status   Status
	Attempts int
	Err      error
	Took     time.Duration
}

func (o Outcome) Delivered() bool { return o.Status == StatusDelivered }

// Report aggregates one Dispatch call.
type Report struct {
	// Outcomes follow the order of the resolved recipient list.
	Outcomes  []Outcome
	Delivered int
	Failed    int
	// Disabled is set when notifications were turned off and nothing was attempted.
	Disabled bool
	Took     time.Duration
}

// OK reports whether no recipient failed.
func (r *Report) OK() bool { return r != nil && r.Failed == 0 }

// Failures returns the failed outcomes in recipient order.
func (r *Report) Failures() []Outcome {
	if r == nil {
		return nil
	}
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) tally() {
	r.Delivered, r.Failed = 0, 0
	for _, o := range r.Outcomes {
		if o.Status == StatusDelivered {
			r.Delivered++
		} else {
			r.Failed++
		}
	}
}

// MaskChatID keeps only the last four characters of a chat id for logs.
func MaskChatID(id string) string {
	r := []rune(id)
	if len(r) <= 4 {
		return id
	}
	return "***" + string(r[len(r)-4:])
}
