package handlers

import (
	"sync"

	"golang.org/x/time/rate"
)

// ActorLimiter rate-limits write operations per actor key. Entries are
// created lazily; the map is bounded in practice by the active actor set.
type ActorLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewActorLimiter allows `burst` immediate operations and then one per
// `every` interval, per actor.
func NewActorLimiter(limit rate.Limit, burst int) *ActorLimiter {
	return &ActorLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *ActorLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
