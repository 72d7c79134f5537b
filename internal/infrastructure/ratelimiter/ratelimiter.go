package ratelimiter

import (
	"net/http"
	"sync"
	"time"
)

const defaultSourceKey = "X-RateLimit-Key"

type Limiter interface {
	Allow(sourceKey string) bool
	Remaining(sourceKey string) int
	GetSourceKey(r *http.Request) string
	GetMaxBurst() int
}

type bucket struct {
	tokens   float64
	lastFill time.Time
	lastSeen time.Time
}

// RateLimiter is a per-source token bucket. The UI shell retries
// aggressively on flaky links; this keeps a stuck retry loop from
// hammering the daemon.
type RateLimiter struct {
	ratePerSecond   float64
	maxBurst        int
	sourceHeaderKey string
	ttl             time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	CacheTTL         time.Duration
	SourceHeaderKey  string
}

func New(options Options) Limiter {
	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}
	if options.CacheTTL == 0 {
		options.CacheTTL = 10 * time.Second
	}
	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}

	rl := &RateLimiter{
		ratePerSecond:   float64(options.MaxRatePerSecond),
		maxBurst:        options.MaxBurst,
		sourceHeaderKey: options.SourceHeaderKey,
		ttl:             options.CacheTTL,
		buckets:         make(map[string]*bucket),
	}

	go rl.evictLoop()

	return rl
}

func (rl *RateLimiter) getBucket(sourceKey string, now time.Time) *bucket {
	b, ok := rl.buckets[sourceKey]
	if !ok {
		b = &bucket{tokens: float64(rl.maxBurst), lastFill: now}
		rl.buckets[sourceKey] = b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * rl.ratePerSecond
		if b.tokens > float64(rl.maxBurst) {
			b.tokens = float64(rl.maxBurst)
		}
		b.lastFill = now
	}
	b.lastSeen = now

	return b
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.getBucket(sourceKey, time.Now())
	if b.tokens < 1 {
		return false
	}

	b.tokens--
	return true
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return int(rl.getBucket(sourceKey, time.Now()).tokens)
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		return key
	}

	return r.RemoteAddr
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.ttl)

		rl.mu.Lock()
		for key, b := range rl.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
