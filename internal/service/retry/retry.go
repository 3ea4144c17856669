// Package retry re-runs upstream model calls that fail for quota reasons.
//
// Only quota/rate-limit failures are retried. Every other error is returned
// on the first attempt, unchanged and without sleeping. Waits grow as
// BaseDelay * 2^attempt plus a uniform jitter in [0, MaxJitter).
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	obs "github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/observability"
)

// Policy is the retry budget and delay schedule for one operation.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
}

// DefaultPolicy returns the schedule used for text and video calls.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 5, BaseDelay: 12 * time.Second, MaxJitter: 2 * time.Second}
}

// WithMaxRetries returns a copy of p with a different retry budget.
func (p Policy) WithMaxRetries(n int) Policy {
	p.MaxRetries = n
	return p
}

type options struct {
	timer     func() backoff.Timer
	jitter    func(max time.Duration) time.Duration
	retryable func(error) bool
}

// Option customises a single Do call.
type Option func(*options)

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(o *options) { o.timer = newTimer }
}

// WithJitter replaces the random jitter source.
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(o *options) { o.jitter = fn }
}

// WithClassifier replaces the quota detector.
func WithClassifier(fn func(error) bool) Option {
	return func(o *options) { o.retryable = fn }
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// Do invokes fn and retries it while it fails with a quota error and budget
// remains. After the budget is spent the last error is returned as is.
// Cancelling ctx aborts a pending wait and returns ctx.Err().
func Do[T any](ctx context.Context, operation string, p Policy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{jitter: uniformJitter, retryable: domain.IsQuotaError}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		result  T
		attempt int
	)
	op := func() error {
		v, err := fn(ctx)
		if err != nil {
			if !o.retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	var b backoff.BackOff = &jitteredExponential{base: p.BaseDelay, maxJitter: p.MaxJitter, jitter: o.jitter}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		attempt++
		obs.RecordQuotaRetry(operation)
		observability.LoggerFromContext(ctx).Warn("upstream quota hit, backing off",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.Int("retries_left", maxRetries-attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err))
	}

	var timer backoff.Timer
	if o.timer != nil {
		timer = o.timer()
	}
	if err := backoff.RetryNotifyWithTimer(op, b, notify, timer); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// jitteredExponential yields base*2^n + jitter for the n-th retry.
type jitteredExponential struct {
	base      time.Duration
	maxJitter time.Duration
	jitter    func(time.Duration) time.Duration
	n         int
}

// maxShift keeps base<<n from overflowing for any sane base delay.
const maxShift = 20

func (b *jitteredExponential) NextBackOff() time.Duration {
	shift := b.n
	if shift > maxShift {
		shift = maxShift
	}
	b.n++
	d := b.base << shift
	if b.jitter != nil {
		d += b.jitter(b.maxJitter)
	}
	return d
}

func (b *jitteredExponential) Reset() { b.n = 0 }
