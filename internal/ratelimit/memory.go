package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/invoiced/internal/clock"
)

type memoryBucketState struct {
	tokens float64
	last   time.Time
}

// MemoryBucket is a process-local token bucket used when no Redis address is
// configured. Buckets untouched for twice their refill window are dropped on
// the next sweep.
type MemoryBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*memoryBucketState
	sweepAt time.Time
}

func NewMemoryBucket(clk clock.Clock) *MemoryBucket {
	return &MemoryBucket{
		clock:   clk,
		buckets: make(map[string]*memoryBucketState),
		sweepAt: clk.Now().Add(time.Minute),
	}
}

func (b *MemoryBucket) Allow(ctx context.Context, key string, rate float64, burst int) (Result, error) {
	if key == "" || rate <= 0 || burst <= 0 {
		return Result{}, errors.New("invalid rate limiter arguments")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	state, ok := b.buckets[key]
	if !ok {
		state = &memoryBucketState{tokens: float64(burst), last: now}
		b.buckets[key] = state
	} else {
		delta := now.Sub(state.last)
		if delta < 0 {
			delta = 0
		}
		state.tokens += delta.Seconds() * rate
		if max := float64(burst); state.tokens > max {
			state.tokens = max
		}
		state.last = now
	}

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}

	if now.After(b.sweepAt) {
		b.sweep(now, rate, burst)
		b.sweepAt = now.Add(time.Minute)
	}

	return Result{
		Allowed:    allowed,
		Remaining:  state.tokens,
		RetryAfter: retryAfter(allowed, state.tokens, rate),
	}, nil
}

func (b *MemoryBucket) sweep(now time.Time, rate float64, burst int) {
	idle := 2 * bucketTTL(rate, burst)
	for key, state := range b.buckets {
		if now.Sub(state.last) > idle {
			delete(b.buckets, key)
		}
	}
}
