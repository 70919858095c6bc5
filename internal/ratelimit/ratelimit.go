// Package ratelimit throttles inbound websocket envelopes per session,
// adapted from the teacher's go/resilience4g/rate_limit token bucket so a
// single misbehaving or malicious client cannot starve a Room Actor's
// mailbox (spec.md §5 names the inbound path as the concurrency boundary
// worth protecting).
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a single token bucket. Use New to construct; the zero value is
// not usable because LastRefill must be seeded.
type Limiter struct {
	maxTokens  float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func New(maxTokens, refillPerSecond float64) *Limiter {
	return &Limiter{
		maxTokens:  maxTokens,
		refillRate: refillPerSecond,
		tokens:     maxTokens,
		lastRefill: time.Now(),
	}
}

// Allow reports whether cost tokens are available and, if so, consumes them.
func (l *Limiter) Allow(cost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens >= cost {
		l.tokens -= cost
		return true
	}
	return false
}

func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens = min(l.tokens+elapsed*l.refillRate, l.maxTokens)
	l.lastRefill = now
}

// PerSessionLimiters is a registry of one Limiter per session id, so the
// server's dispatcher can rate-limit each connected client independently
// without every session paying for a shared bucket's contention.
type PerSessionLimiters struct {
	maxTokens  float64
	refillRate float64

	mu       sync.Mutex
	limiters map[string]*Limiter
}

func NewPerSessionLimiters(maxTokens, refillPerSecond float64) *PerSessionLimiters {
	return &PerSessionLimiters{
		maxTokens:  maxTokens,
		refillRate: refillPerSecond,
		limiters:   make(map[string]*Limiter),
	}
}

func (p *PerSessionLimiters) Allow(sessionID string, cost float64) bool {
	p.mu.Lock()
	l, ok := p.limiters[sessionID]
	if !ok {
		l = New(p.maxTokens, p.refillRate)
		p.limiters[sessionID] = l
	}
	p.mu.Unlock()
	return l.Allow(cost)
}

// Forget drops a session's bucket, called on disconnect so the map does not
// grow without bound across the life of the process.
func (p *PerSessionLimiters) Forget(sessionID string) {
	p.mu.Lock()
	delete(p.limiters, sessionID)
	p.mu.Unlock()
}
