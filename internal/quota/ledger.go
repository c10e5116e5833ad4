package quota

import (
	"context"
	"time"
)

// Window is the fixed quota granularity.
const Window = time.Hour

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // set when denied: seconds until the window rolls
}

// Ledger gates prediction requests by per-account hourly counters. The
// increment-and-compare must be atomic: concurrent requests from one account
// never push the admitted count past the tier's ceiling.
type Ledger interface {
	Admit(ctx context.Context, accountID, tier string) (Decision, error)
}

// Limits maps tier names to hourly ceilings. Unknown tiers fall back to the
// free tier's limit.
type Limits map[string]int

func (l Limits) For(tier string) int {
	if limit, ok := l[tier]; ok {
		return limit
	}
	if limit, ok := l["free"]; ok {
		return limit
	}
	return 100
}

// windowStart floors t to the current window boundary.
func windowStart(t time.Time) time.Time {
	return t.Truncate(Window)
}

// retryAfter returns the time left until the window containing t rolls over.
func retryAfter(t time.Time) time.Duration {
	return windowStart(t).Add(Window).Sub(t)
}
