package ratelimit

import (
	"sync"
	"time"
)

// Per-action budgets. Typing gets a generous bucket since clients emit an
// event per debounce window, not per keystroke.
var limits = map[string]struct {
	maxTokens  int
	refillRate int
	refillTime time.Duration
}{
	"create_chat":         {maxTokens: 5, refillRate: 1, refillTime: 10 * time.Second},
	"send_message":        {maxTokens: 20, refillRate: 5, refillTime: 5 * time.Second},
	"respond_negotiation": {maxTokens: 10, refillRate: 2, refillTime: 5 * time.Second},
	"typing":              {maxTokens: 30, refillRate: 10, refillTime: 5 * time.Second},
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
}

func (tb *tokenBucket) allow() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	if refills := int(elapsed / tb.refillTime); refills > 0 {
		tb.tokens += refills * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

// RateLimiter tracks one token bucket per (user, action) pair.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*tokenBucket)}
}

// Allow reports whether the user may perform the action now; when denied it
// returns the wait until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	limit, ok := limits[action]
	if !ok {
		return true, 0
	}

	key := userID + ":" + action

	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		bucket, exists = rl.buckets[key]
		if !exists {
			bucket = &tokenBucket{
				tokens:     limit.maxTokens,
				maxTokens:  limit.maxTokens,
				refillRate: limit.refillRate,
				refillTime: limit.refillTime,
				lastRefill: time.Now(),
			}
			rl.buckets[key] = bucket
		}
		rl.mu.Unlock()
	}

	return bucket.allow()
}

// StartCleanupRoutine drops buckets that refilled completely, bounding the
// map for long-lived processes.
func (rl *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.mu.Lock()
			for key, bucket := range rl.buckets {
				bucket.mu.Lock()
				idle := bucket.tokens == bucket.maxTokens
				bucket.mu.Unlock()
				if idle {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}()
}
