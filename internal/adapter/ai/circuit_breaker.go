package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	obs "github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed indicates the circuit is allowing requests to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen indicates the circuit is blocking requests due to failures.
	CircuitOpen
	// CircuitHalfOpen indicates the circuit is probing recovery with one request.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling upstream while a model's breaker is open.
var ErrCircuitOpen = fmt.Errorf("%w: circuit open", domain.ErrUpstream)

// CircuitBreaker tracks consecutive hard failures for one model.
type CircuitBreaker struct {
	mu               sync.Mutex
	modelID          string
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	lastFailureTime  time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker for a specific model
func NewCircuitBreaker(modelID string) *CircuitBreaker {
	return &CircuitBreaker{
		modelID:          modelID,
		failureThreshold: 3,
		recoveryTimeout:  30 * time.Second,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// ShouldAttempt reports whether a call may proceed. An open breaker whose
// recovery timeout has elapsed moves to half-open and admits one trial call.
func (cb *CircuitBreaker) ShouldAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.recoveryTimeout {
			cb.setState(CircuitHalfOpen)
			return true
		}
		return false
	case CircuitHalfOpen:
		// a trial call is already in flight
		return false
	default:
		return false
	}
}

// RecordSuccess closes the circuit and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed after successful recovery", slog.String("model", cb.modelID))
		cb.setState(CircuitClosed)
	}
}

// RecordFailure counts a hard failure; a failed half-open trial reopens at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened due to consecutive failures",
				slog.String("model", cb.modelID),
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.setState(CircuitOpen)
	}
}

// RecordNeutral releases a half-open trial that ended without a verdict,
// e.g. on a quota error or cancellation.
func (cb *CircuitBreaker) RecordNeutral() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitHalfOpen {
		// let the next caller try again
		cb.setState(CircuitOpen)
		cb.lastFailureTime = cb.now().Add(-cb.recoveryTimeout)
	}
}

// GetState returns the current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	obs.RecordCircuitBreakerState(cb.modelID, int(s))
}

// CircuitBreakerManager manages circuit breakers for different models
type CircuitBreakerManager struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakerManager creates a new circuit breaker manager
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{breakers: make(map[string]*CircuitBreaker)}
}

// GetBreaker returns or creates a circuit breaker for a specific model
func (cbm *CircuitBreakerManager) GetBreaker(modelID string) *CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[modelID]; exists {
		return breaker
	}
	breaker := NewCircuitBreaker(modelID)
	cbm.breakers[modelID] = breaker
	return breaker
}

// OpenModels returns models whose circuit is currently open.
func (cbm *CircuitBreakerManager) OpenModels() []string {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	var open []string
	for modelID, breaker := range cbm.breakers {
		if breaker.GetState() == CircuitOpen {
			open = append(open, modelID)
		}
	}
	return open
}

// CircuitBreakerClient short-circuits calls to models that keep failing.
// Quota errors and cancellations never trip a breaker so the retry wrapper
// can keep backing off against a healthy but busy model.
type CircuitBreakerClient struct {
	base     domain.GenAIClient
	breakers *CircuitBreakerManager
}

// NewCircuitBreakerClient wraps base with per-model breakers.
func NewCircuitBreakerClient(base domain.GenAIClient, breakers *CircuitBreakerManager) *CircuitBreakerClient {
	if breakers == nil {
		breakers = NewCircuitBreakerManager()
	}
	return &CircuitBreakerClient{base: base, breakers: breakers}
}

// videoOpsKey groups operation polling and downloads, which carry no model.
const videoOpsKey = "video-operations"

func (c *CircuitBreakerClient) GenerateText(ctx domain.Context, req domain.TextRequest) (domain.TextResponse, error) {
	return guard(ctx, c.breakers.GetBreaker(req.Model), func() (domain.TextResponse, error) {
		return c.base.GenerateText(ctx, req)
	})
}

func (c *CircuitBreakerClient) GenerateImage(ctx domain.Context, req domain.ImageRequest) (domain.GeneratedImage, error) {
	return guard(ctx, c.breakers.GetBreaker(req.Model), func() (domain.GeneratedImage, error) {
		return c.base.GenerateImage(ctx, req)
	})
}

func (c *CircuitBreakerClient) StartVideo(ctx domain.Context, req domain.VideoRequest) (string, error) {
	return guard(ctx, c.breakers.GetBreaker(req.Model), func() (string, error) {
		return c.base.StartVideo(ctx, req)
	})
}

func (c *CircuitBreakerClient) PollVideo(ctx domain.Context, operation string) (domain.VideoOperation, error) {
	return guard(ctx, c.breakers.GetBreaker(videoOpsKey), func() (domain.VideoOperation, error) {
		return c.base.PollVideo(ctx, operation)
	})
}

func (c *CircuitBreakerClient) Download(ctx domain.Context, uri string) ([]byte, error) {
	return guard(ctx, c.breakers.GetBreaker(videoOpsKey), func() ([]byte, error) {
		return c.base.Download(ctx, uri)
	})
}

func guard[T any](ctx context.Context, cb *CircuitBreaker, call func() (T, error)) (T, error) {
	if !cb.ShouldAttempt() {
		var zero T
		return zero, fmt.Errorf("op=ai.circuit model=%s: %w", cb.modelID, ErrCircuitOpen)
	}
	v, err := call()
	switch {
	case err == nil:
		cb.RecordSuccess()
	case domain.IsQuotaError(err), callerError(err), ctx.Err() != nil, errors.Is(err, context.Canceled):
		cb.RecordNeutral()
	default:
		cb.RecordFailure()
	}
	return v, err
}

// callerError reports a rejection of the request itself (bad argument,
// safety block, missing permission). The model is healthy in that case.
func callerError(err error) bool {
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	switch {
	case ue.StatusCode == 408, ue.StatusCode == 429:
		return false
	default:
		return ue.StatusCode >= 400 && ue.StatusCode < 500
	}
}
