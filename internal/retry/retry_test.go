package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Config{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}

func TestIsNetwork(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"regular error", errors.New("something"), false},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetwork(tt.err))
		})
	}
}

func TestDoRetryThenSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fast, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, func() (int, error) {
		calls++
		return 0, errors.New("bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhausted(t *testing.T) {
	rc := fast
	rc.Retryable = Always
	calls := 0
	err := Run(context.Background(), rc, func() error {
		calls++
		return errors.New("still down")
	})

	assert.EqualError(t, err, "still down")
	assert.Equal(t, 4, calls)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, fast, func() (int, error) {
		calls++
		return 1, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBackoff(t *testing.T) {
	rc := Config{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, rc.backoff(0))
	assert.Equal(t, 200*time.Millisecond, rc.backoff(1))
	assert.Equal(t, 300*time.Millisecond, rc.backoff(2))
	assert.False(t, Always(context.Canceled))
}
