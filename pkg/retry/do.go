// Package retry runs an operation with bounded attempts, backoff, jitter,
// context cancellation and a retry condition. It backs every idempotent I/O
// step of plugin installation: registry fetch, repository sync, lock waits.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Func defines a retryable function.
// The function must respect the provided context.
type Func func(ctx context.Context) error

// RetryIf reports whether an error should trigger another attempt.
type RetryIf func(error) bool

// Notify is called before sleeping between attempts.
type Notify func(attempt int, err error, wait time.Duration)

// Backoff defines how long to wait before the next attempt.
// attempt starts from 0 (the wait after the first failure).
type Backoff interface {
	Next(attempt int) time.Duration
}

type fixedBackoff struct {
	interval time.Duration
}

func (b fixedBackoff) Next(int) time.Duration {
	return b.interval
}

// Fixed returns a fixed backoff strategy.
func Fixed(interval time.Duration) Backoff {
	return fixedBackoff{interval: interval}
}

type linearBackoff struct {
	base time.Duration
	max  time.Duration
}

func (b linearBackoff) Next(attempt int) time.Duration {
	d := b.base * time.Duration(attempt+1)
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

// Linear returns a linear backoff strategy capped at max when given.
func Linear(base time.Duration, max ...time.Duration) Backoff {
	var m time.Duration
	if len(max) > 0 {
		m = max[0]
	}
	return linearBackoff{base: base, max: m}
}

type exponentialBackoff struct {
	base time.Duration
	max  time.Duration
}

func (b exponentialBackoff) Next(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := b.base * time.Duration(1<<attempt)
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

// Exponential returns an exponential backoff strategy capped at max when given.
func Exponential(base time.Duration, max ...time.Duration) Backoff {
	var m time.Duration
	if len(max) > 0 {
		m = max[0]
	}
	return exponentialBackoff{base: base, max: m}
}

// Jitter modifies the backoff duration.
type Jitter func(time.Duration) time.Duration

// NoJitter applies no jitter.
func NoJitter(d time.Duration) time.Duration {
	return d
}

// FullJitter returns a random duration in [0, d).
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)))
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not retryable regardless of RetryIf.
// Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Config defines retry behavior.
type Config struct {
	maxAttempts    int
	maxElapsedTime time.Duration
	backoff        Backoff
	jitter         Jitter
	retryIf        RetryIf
	notify         Notify
}

func defaultConfig() *Config {
	return &Config{
		maxAttempts: 3,
		backoff:     Fixed(time.Second),
		jitter:      NoJitter,
		retryIf:     IsRetryableError,
	}
}

// Option configures retry behavior.
type Option func(*Config)

// WithMaxAttempts sets the maximum number of attempts including the first one.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithMaxElapsedTime limits the total retry duration.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(c *Config) {
		c.maxElapsedTime = d
	}
}

// WithBackoff sets the backoff strategy.
func WithBackoff(b Backoff) Option {
	return func(c *Config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithJitter sets the jitter strategy.
func WithJitter(j Jitter) Option {
	return func(c *Config) {
		if j != nil {
			c.jitter = j
		}
	}
}

// WithRetryIf sets the retry condition.
func WithRetryIf(fn RetryIf) Option {
	return func(c *Config) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

// WithNotify registers a callback invoked before each wait.
func WithNotify(fn Notify) Option {
	return func(c *Config) {
		c.notify = fn
	}
}

// Do executes fn until it succeeds, a non-retryable error is returned, the
// attempts or elapsed time are exhausted, or ctx is done.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.maxElapsedTime > 0 && time.Since(start) >= cfg.maxElapsedTime {
			return lastErr
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if !cfg.retryIf(err) {
			return err
		}
		if attempt == cfg.maxAttempts-1 {
			break
		}

		wait := cfg.jitter(cfg.backoff.Next(attempt))
		if cfg.maxElapsedTime > 0 {
			if left := cfg.maxElapsedTime - time.Since(start); wait > left {
				wait = left
			}
		}
		if cfg.notify != nil {
			cfg.notify(attempt+1, err, wait)
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// IsRetryableError retries everything except context cancellation and deadline.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
