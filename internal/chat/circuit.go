package chat

import (
	"errors"
	"sync"
	"time"
)

// ErrProviderUnavailable is returned when the breaker is rejecting calls
// because the model endpoint has been failing.
var ErrProviderUnavailable = errors.New("model endpoint unavailable")

// BreakerConfig tunes the provider circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening (default: 5)
	SuccessThreshold int           // successes needed to close again (default: 2)
	Cooldown         time.Duration // time before probing a failed endpoint (default: 30s)
}

// breaker guards the model endpoint. After FailureThreshold consecutive
// failures it rejects calls outright for Cooldown, then lets probe requests
// through until SuccessThreshold of them succeed.
//
// Safe for concurrent use.
type breaker struct {
	mu sync.Mutex

	failureThreshold int
	successThreshold int
	cooldown         time.Duration

	open        bool
	failures    int
	successes   int
	lastFailure time.Time
}

func newBreaker(cfg BreakerConfig) *breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &breaker{
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		cooldown:         cfg.Cooldown,
	}
}

// allow reports whether a call may proceed. While open, calls are rejected
// until the cooldown has passed; after that, probes are let through.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open && time.Since(b.lastFailure) < b.cooldown {
		return ErrProviderUnavailable
	}
	return nil
}

// success records a completed call and closes the breaker once enough
// probes have succeeded.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		b.failures = 0
		return
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.open = false
		b.failures = 0
		b.successes = 0
	}
}

// failure records a failed call, opening the breaker at the threshold and
// restarting the cooldown while open.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0
	b.lastFailure = time.Now()
	if b.failures >= b.failureThreshold {
		b.open = true
	}
}
