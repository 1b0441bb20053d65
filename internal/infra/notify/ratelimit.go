package notify

import (
	"context"
	"fmt"
	"time"

	"expense_reminder/internal/domain/notifier"

	"golang.org/x/time/rate"
)

// RateLimited spaces out sends of the wrapped notifier so a burst of due
// reminders does not trip provider limits.
type RateLimited struct {
	next    notifier.Notifier
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute sends per minute with a burst of one.
// A non-positive perMinute returns next unchanged. Send waits for a slot for as
// long as ctx allows, so callers that must not drop messages pass a context
// without a deadline and bound the transport with NewSendTimeout instead.
func NewRateLimited(next notifier.Notifier, perMinute int) notifier.Notifier {
	if perMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Send(ctx context.Context, msg notifier.Message) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Send(ctx, msg)
}
