package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// throttledClient paces outbound requests to stay under a provider's quota.
type throttledClient struct {
	next    Client
	limiter *rate.Limiter
}

// Throttle wraps next so at most perMinute requests start each minute.
// A non-positive perMinute returns next unchanged.
func Throttle(next Client, perMinute int) Client {
	if perMinute <= 0 {
		return next
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &throttledClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Complete waits for a token and then delegates.
func (c *throttledClient) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return c.next.Complete(ctx, system, user)
}
