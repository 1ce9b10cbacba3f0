// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limiter defaults.
const (
	DefaultLimiterIdle  = 10 * time.Minute
	DefaultSweepEvery   = time.Minute
	CodeRateLimited     = "RATE_LIMITED"
	rateLimitedResponse = "too many requests, slow down"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client IP. Buckets idle for longer
// than the idle window are swept by a background goroutine that runs until
// Close.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client

	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// LimiterOption configures a RateLimiter.
type LimiterOption func(*RateLimiter)

// WithIdleWindow sets how long an unused client bucket is kept.
func WithIdleWindow(d time.Duration) LimiterOption {
	return func(l *RateLimiter) {
		if d > 0 {
			l.idle = d
		}
	}
}

// WithLimiterClock sets the time source for bucket refill and sweeping.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *RateLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewRateLimiter allows each client rps requests per second with bursts of
// up to burst, and starts the sweeper.
func NewRateLimiter(rps float64, burst int, opts ...LimiterOption) *RateLimiter {
	l := &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    DefaultLimiterIdle,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.sweepLoop(DefaultSweepEvery)
	return l
}

// Allow reports whether key may make a request now, consuming a token if so.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle since before the idle window and returns how
// many were removed.
func (l *RateLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *RateLimiter) sweepLoop(every time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Close stops the sweeper and waits for it to exit. Safe to call twice.
func (l *RateLimiter) Close() {
	l.closeOnce.Do(func() { close(l.stop) })
	<-l.done
}

// Middleware rejects requests from clients over their budget with 429.
func (l *RateLimiter) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				RateLimitedTotal.WithLabelValues(route).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Error: rateLimitedResponse,
					Code:  CodeRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) retryAfterSeconds() int {
	if l.limit <= 0 {
		return 1
	}
	secs := int(1/float64(l.limit) + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// clientIP is the host part of RemoteAddr. Behind a proxy, http.trust_proxy
// puts chi's RealIP in front so RemoteAddr already holds the client.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
