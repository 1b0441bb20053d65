package notify

import (
	"context"
	"time"

	"expense_reminder/internal/domain/notifier"
)

// SendTimeout bounds each call of the wrapped notifier. Wrap the transport
// with it and put RateLimited outside, so time spent queued for a send slot
// never counts against the transport deadline.
type SendTimeout struct {
	next    notifier.Notifier
	timeout time.Duration
}

// NewSendTimeout returns next unchanged for a non-positive timeout.
func NewSendTimeout(next notifier.Notifier, timeout time.Duration) notifier.Notifier {
	if timeout <= 0 {
		return next
	}
	return &SendTimeout{next: next, timeout: timeout}
}

func (s *SendTimeout) Send(ctx context.Context, msg notifier.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Send(ctx, msg)
}
