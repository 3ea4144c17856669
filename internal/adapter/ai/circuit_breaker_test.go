package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

func TestNewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test-model")
	assert.NotNil(t, cb)
	assert.Equal(t, "test-model", cb.modelID)
	assert.Equal(t, CircuitClosed, cb.state)
	assert.Equal(t, 3, cb.failureThreshold)
	assert.Equal(t, 30*time.Second, cb.recoveryTimeout)
}

func TestCircuitBreaker_ShouldAttempt(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*CircuitBreaker)
		expected bool
		state    CircuitState
	}{
		{
			name:     "closed circuit allows attempts",
			setup:    func(cb *CircuitBreaker) {},
			expected: true,
			state:    CircuitClosed,
		},
		{
			name: "open circuit blocks attempts when recovery timeout not passed",
			setup: func(cb *CircuitBreaker) {
				cb.state = CircuitOpen
				cb.lastFailureTime = time.Now()
			},
			expected: false,
			state:    CircuitOpen,
		},
		{
			name: "open circuit admits a trial call after recovery timeout",
			setup: func(cb *CircuitBreaker) {
				cb.state = CircuitOpen
				cb.lastFailureTime = time.Now().Add(-35 * time.Second)
			},
			expected: true,
			state:    CircuitHalfOpen,
		},
		{
			name: "half-open circuit blocks while trial call in flight",
			setup: func(cb *CircuitBreaker) {
				cb.state = CircuitHalfOpen
			},
			expected: false,
			state:    CircuitHalfOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker("test-model")
			tt.setup(cb)
			assert.Equal(t, tt.expected, cb.ShouldAttempt())
			assert.Equal(t, tt.state, cb.GetState())
		})
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("m")
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState())
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState(), "success resets the streak")
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenTransitions(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("m")
	cb.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, CircuitOpen, cb.GetState())

	now = now.Add(31 * time.Second)
	require.True(t, cb.ShouldAttempt())
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState(), "failed trial reopens")

	now = now.Add(31 * time.Second)
	require.True(t, cb.ShouldAttempt())
	cb.RecordNeutral()
	assert.Equal(t, CircuitOpen, cb.GetState())
	require.True(t, cb.ShouldAttempt(), "neutral trial lets the next caller try immediately")
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.GetState())
}

func TestCircuitBreakerManager(t *testing.T) {
	m := NewCircuitBreakerManager()
	a := m.GetBreaker("a")
	assert.Same(t, a, m.GetBreaker("a"))
	assert.Empty(t, m.OpenModels())
	for i := 0; i < 3; i++ {
		a.RecordFailure()
	}
	assert.Equal(t, []string{"a"}, m.OpenModels())
}

func TestCircuitBreakerClient_TripsOnHardFailures(t *testing.T) {
	boom := &domain.UpstreamError{Operation: "generateContent", StatusCode: 500, Status: "INTERNAL", Message: "boom"}
	stub := &stubGenAI{textFn: func(domain.TextRequest) (domain.TextResponse, error) { return domain.TextResponse{}, boom }}
	c := NewCircuitBreakerClient(stub, nil)
	ctx := context.Background()
	req := domain.TextRequest{Model: "gemini-2.5-flash", Prompt: "p"}

	for i := 0; i < 3; i++ {
		_, err := c.GenerateText(ctx, req)
		require.ErrorIs(t, err, boom)
	}
	_, err := c.GenerateText(ctx, req)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, 3, stub.calls, "open breaker must not call upstream")

	// other models are unaffected
	_, err = c.GenerateImage(ctx, domain.ImageRequest{Model: "imagen"})
	require.NoError(t, err)
}

func TestCircuitBreakerClient_QuotaDoesNotTrip(t *testing.T) {
	quota := &domain.UpstreamError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED"}
	stub := &stubGenAI{startFn: func(domain.VideoRequest) (string, error) { return "", quota }}
	c := NewCircuitBreakerClient(stub, NewCircuitBreakerManager())
	for i := 0; i < 5; i++ {
		_, err := c.StartVideo(context.Background(), domain.VideoRequest{Model: "veo"})
		require.True(t, errors.Is(err, domain.ErrUpstreamRateLimit))
	}
	assert.Equal(t, 5, stub.calls)
}

func TestCircuitBreakerClient_VideoOperations(t *testing.T) {
	stub := &stubGenAI{}
	c := NewCircuitBreakerClient(stub, nil)
	op, err := c.PollVideo(context.Background(), "operations/abc")
	require.NoError(t, err)
	assert.True(t, op.Done)
	data, err := c.Download(context.Background(), op.URI)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4"), data)
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestCircuitBreakerClient_ClientErrorsDoNotTrip(t *testing.T) {
	bad := &domain.UpstreamError{Operation: "generateContent", StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "bad prompt"}
	fail := true
	stub := &stubGenAI{textFn: func(domain.TextRequest) (domain.TextResponse, error) {
		if fail {
			return domain.TextResponse{}, bad
		}
		return domain.TextResponse{Text: "ok"}, nil
	}}
	c := NewCircuitBreakerClient(stub, NewCircuitBreakerManager())
	ctx := context.Background()
	req := domain.TextRequest{Model: "gemini-2.5-flash", Prompt: "p", GoogleSearch: true}

	for i := 0; i < 3; i++ {
		_, err := c.GenerateText(ctx, req)
		require.ErrorIs(t, err, bad)
	}
	fail = false
	resp, err := c.GenerateText(ctx, req)
	require.NoError(t, err, "rejected requests must not open the breaker for other callers")
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 4, stub.calls)
}

func TestCallerError(t *testing.T) {
	assert.True(t, callerError(&domain.UpstreamError{StatusCode: 400}))
	assert.True(t, callerError(&domain.UpstreamError{StatusCode: 403}))
	assert.False(t, callerError(&domain.UpstreamError{StatusCode: 408}))
	assert.False(t, callerError(&domain.UpstreamError{StatusCode: 429}))
	assert.False(t, callerError(&domain.UpstreamError{StatusCode: 503}))
	assert.False(t, callerError(errors.New("dial tcp: refused")))
}
