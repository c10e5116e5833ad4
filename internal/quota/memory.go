package quota

import (
	"context"
	"sync"
	"time"
)

// memoryWindow is one account's counter for the current hour.
type memoryWindow struct {
	start time.Time
	count int
}

// MemoryLedger is a process-local ledger used when Redis is not configured.
// Windows are replaced, not accumulated, when the hour rolls over.
type MemoryLedger struct {
	mu      sync.Mutex
	limits  Limits
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryLedger creates an in-process quota ledger.
func NewMemoryLedger(limits Limits) *MemoryLedger {
	return &MemoryLedger{
		limits:  limits,
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Admit performs the atomic increment-and-compare under a single lock. An
// over-limit request leaves the count unchanged.
func (l *MemoryLedger) Admit(_ context.Context, accountID, tier string) (Decision, error) {
	limit := l.limits.For(tier)
	now := l.now()
	start := windowStart(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[accountID]
	if !ok || !w.start.Equal(start) {
		w = &memoryWindow{start: start}
		l.windows[accountID] = w
	}

	if w.count+1 > limit {
		return Decision{Allowed: false, RetryAfter: retryAfter(now)}, nil
	}
	w.count++
	return Decision{Allowed: true}, nil
}
