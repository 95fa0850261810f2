// Copyright 2026 The casetrace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ratelimit serializes and throttles calls into a rate-limited
// backend. A Limiter enforces a minimum interval between call starts and
// retries throttled calls with exponential backoff, honoring delays the
// backend advertises. Retry policy lives entirely here: callers never loop
// on transport errors themselves.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Config controls a Limiter. MinInterval must be large enough to respect the
// deployment's per-minute token budget.
type Config struct {
	MinInterval time.Duration // spacing between call starts
	BaseDelay   time.Duration // backoff base when no hint is advertised
	MaxRetries  int           // throttle retries (MaxRetries+1 attempts total)
}

// DefaultConfig spaces calls 15s apart, which respects low TPM budgets.
func DefaultConfig() Config {
	return Config{
		MinInterval: 15 * time.Second,
		BaseDelay:   2 * time.Second,
		MaxRetries:  3,
	}
}

// Limiter is shared process-wide by every call into the rate-limited
// backend. Only the spacing decision is serialized; the guarded section
// never spans the actual call.
type Limiter struct {
	cfg Config

	mu         sync.Mutex
	lastCallAt time.Time
}

// New creates a Limiter. Zero config fields fall back to the defaults.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.MinInterval == 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return &Limiter{cfg: cfg}
}

// Wait sleeps until MinInterval has elapsed since the previous call start,
// then records the new call start. The mutex is held only around the timing
// decision, so concurrent callers do not block each other's I/O. lastCallAt
// is monotonically non-decreasing.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !l.lastCallAt.IsZero() {
		wait = l.cfg.MinInterval - now.Sub(l.lastCallAt)
	}
	if wait < 0 {
		wait = 0
	}
	// Reserve the slot before sleeping so concurrent callers space out
	// rather than stampeding when the sleep ends.
	l.lastCallAt = now.Add(wait)
	l.mu.Unlock()

	if wait > 0 {
		slog.Debug("Rate limiting", "wait", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// Do invokes fn under the limiter: it waits out the spacing interval, runs
// fn, and on a throttling failure backs off and retries up to MaxRetries
// times. The backoff prefers a delay advertised inside the error, falling
// back to BaseDelay * 2^attempt. Non-throttling failures propagate
// immediately, and exhausting retries re-raises the throttling failure.
func Do[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if err := l.Wait(ctx); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsThrottle(err) {
			return zero, err
		}
		lastErr = err

		if attempt == l.cfg.MaxRetries {
			break
		}
		wait := l.backoff(err, attempt)
		slog.Warn("Rate limit hit, backing off",
			"attempt", attempt+1,
			"max_attempts", l.cfg.MaxRetries+1,
			"wait", wait,
			"error", err)
		if serr := sleep(ctx, wait); serr != nil {
			return zero, serr
		}
	}

	slog.Error("Rate limit retries exhausted", "retries", l.cfg.MaxRetries, "error", lastErr)
	return zero, lastErr
}

// Stream applies the same policy around the establishment of a stream: a
// throttling failure before the first item is retried per the same schedule.
// Once establish has returned a live stream, failures are the caller's to
// surface; they are never silently retried, since partial output must not be
// duplicated.
func Stream[T any](ctx context.Context, l *Limiter, establish func(context.Context) (<-chan T, error)) (<-chan T, error) {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}

		stream, err := establish(ctx)
		if err == nil {
			return stream, nil
		}
		if !IsThrottle(err) {
			return nil, err
		}
		lastErr = err

		if attempt == l.cfg.MaxRetries {
			break
		}
		wait := l.backoff(err, attempt)
		slog.Warn("Rate limit hit establishing stream, backing off",
			"attempt", attempt+1,
			"max_attempts", l.cfg.MaxRetries+1,
			"wait", wait,
			"error", err)
		if serr := sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}

	slog.Error("Rate limit retries exhausted", "retries", l.cfg.MaxRetries, "error", lastErr)
	return nil, lastErr
}

// backoff computes the retry delay for the given attempt.
func (l *Limiter) backoff(err error, attempt int) time.Duration {
	if hint := extractWaitHint(err); hint > 0 {
		return hint
	}
	return time.Duration(float64(l.cfg.BaseDelay) * math.Pow(2, float64(attempt)))
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
