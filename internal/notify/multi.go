package notify

import (
	"context"
	"errors"
	"fmt"
)

// Sender is the notifier contract consumed by Multi.
type Sender interface {
	Name() string
	Send(ctx context.Context, recipient string, parts []Part) error
}

// Multi sends every notification to all of its senders. Senders that are not
// configured are skipped.
type Multi struct {
	senders []Sender
}

// NewMulti returns a fan-out over senders.
func NewMulti(senders ...Sender) *Multi {
	return &Multi{senders: senders}
}

// Name identifies the notifier in logs and metrics.
func (m *Multi) Name() string { return "notify" }

// Send delivers to each sender in order. Failures are joined; when every
// sender is unconfigured the result is ErrNotConfigured.
func (m *Multi) Send(ctx context.Context, recipient string, parts []Part) error {
	var errs []error
	delivered := false
	for _, s := range m.senders {
		err := s.Send(ctx, recipient, parts)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrNotConfigured):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !delivered {
		return ErrNotConfigured
	}
	return nil
}
