package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutePassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxRequests: 3, Timeout: time.Minute})

	require.NoError(t, cb.Execute(func() error { return nil }))

	failure := errors.New("boom")
	assert.ErrorIs(t, cb.Execute(func() error { return failure }), failure)
}

func TestOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxRequests: 2, Timeout: time.Minute})
	failure := errors.New("boom")

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return failure })
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxRequests: 1, Timeout: 10 * time.Millisecond})

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrOpen)

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	require.NoError(t, cb.Execute(func() error { return nil }))
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxRequests: 2, Timeout: time.Minute})
	failure := errors.New("boom")

	_ = cb.Execute(func() error { return failure })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return failure })

	// One failure after a success must not trip a threshold of two.
	assert.NoError(t, cb.Execute(func() error { return nil }))
}
