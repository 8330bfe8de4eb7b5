package fetch

import (
	"context"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerTransport(t *testing.T) {
	next := NewMockTransport().StubAny(Respond(200, ""))

	t.Run("given no breaker config, then transport unchanged", func(t *testing.T) {
		cfg := newConfig()
		assert.Equal(t, next, newBreakerTransport(next, cfg))
	})

	t.Run("given breaker config, then transport wrapped", func(t *testing.T) {
		cfg := newConfig(WithBreaker(BreakerConfig{ConsecutiveFailures: 3}))
		assert.NotEqual(t, next, newBreakerTransport(next, cfg))
	})
}

func TestBreakerTransport_PassesSuccesses(t *testing.T) {
	mock := NewMockTransport().StubAny(Respond(200, "ok"))
	cfg := newConfig(WithBreaker(BreakerConfig{ConsecutiveFailures: 2}))
	rt := newBreakerTransport(mock, cfg)

	for i := 0; i < 5; i++ {
		resp, err := rt.RoundTrip(newRequest(t, "https://example.org/ok"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
}

func TestBreakerTransport_ServerErrorsStillReturned(t *testing.T) {
	// A 5xx counts against the breaker but is handed back as a normal
	// response so the retry logic can see the status.
	mock := NewMockTransport().StubAny(Respond(503, "down"))
	cfg := newConfig(WithBreaker(BreakerConfig{ConsecutiveFailures: 10}))
	rt := newBreakerTransport(mock, cfg)

	resp, err := rt.RoundTrip(newRequest(t, "https://example.org/down"))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestBreakerTransport_TripsOnConsecutiveFailures(t *testing.T) {
	mock := NewMockTransport().StubAny(Respond(500, "boom"))

	var transitions []gobreaker.State
	cfg := newConfig(WithBreaker(BreakerConfig{
		ConsecutiveFailures: 2,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	}))
	rt := newBreakerTransport(mock, cfg)

	for i := 0; i < 2; i++ {
		_, err := rt.RoundTrip(newRequest(t, "https://example.org/boom"))
		require.NoError(t, err)
	}

	_, err := rt.RoundTrip(newRequest(t, "https://example.org/boom"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, mock.RequestCount())
	assert.Contains(t, transitions, gobreaker.StateOpen)
}

func TestBreakerTransport_TripsOnFailureRatio(t *testing.T) {
	mock := NewMockTransport().
		StubURL("https://example.org/ok", Respond(200, "")).
		StubURL("https://example.org/boom", Respond(500, ""))
	cfg := newConfig(WithBreaker(BreakerConfig{
		FailureRatio: 0.5,
		MinRequests:  4,
	}))
	rt := newBreakerTransport(mock, cfg)

	for i := 0; i < 2; i++ {
		_, err := rt.RoundTrip(newRequest(t, "https://example.org/ok"))
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := rt.RoundTrip(newRequest(t, "https://example.org/boom"))
		require.NoError(t, err)
	}

	_, err := rt.RoundTrip(newRequest(t, "https://example.org/ok"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestFetch_BreakerOpenIsTransportFault(t *testing.T) {
	mock := NewMockTransport().StubAny(Respond(500, "boom"))
	f := newTestFetcher(mock, WithBreaker(BreakerConfig{ConsecutiveFailures: 2}))

	// Two failed attempts trip the breaker; the third attempt's fault
	// comes back below the protocol.
	res, err := f.Fetch(context.Background(), "https://example.org/boom", nil,
		MaxAttempts(5))

	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeTransportFault, res.Outcome)
	assert.Equal(t, 3, res.Trail.Len())
}
