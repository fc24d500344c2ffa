package app

import (
	"context"
	"strings"
	"time"

	"storefront/internal/util"
	"storefront/pkg/domain"
)

const DefaultContactDelay = 2 * time.Second

// ContactDesk accepts contact messages. Nothing is sent or stored; a
// submission only waits out the configured delay.
type ContactDesk struct {
	delay time.Duration
}

// NewContactDesk uses DefaultContactDelay for negative delays.
func NewContactDesk(delay time.Duration) *ContactDesk {
	if delay < 0 {
		delay = DefaultContactDelay
	}
	return &ContactDesk{delay: delay}
}

func (d *ContactDesk) Delay() time.Duration { return d.delay }

// Submit validates msg and waits for the delay or ctx cancellation.
func (d *ContactDesk) Submit(ctx context.Context, msg domain.ContactMessage) error {
	if strings.TrimSpace(msg.Name) == "" || strings.TrimSpace(msg.Email) == "" ||
		strings.TrimSpace(msg.Subject) == "" || strings.TrimSpace(msg.Message) == "" {
		return ErrIncompleteContact
	}
	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	util.LoggerFromContext(ctx).Info("contact message accepted", "subject_len", len(msg.Subject), "message_len", len(msg.Message))
	return nil
}
