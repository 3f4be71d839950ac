package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(open func() error) *Client {
	return &Client{
		log:      zap.NewNop(),
		open:     open,
		close:    func() error { return nil },
		attempts: 5,
		delay:    time.Millisecond,
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	calls := 0
	c := testClient(func() error {
		calls++
		return errors.New("connection reset")
	})

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Contains(t, err.Error(), "after 5 attempts")
	assert.Equal(t, StatusFailed, c.Status())
}

func TestRunAuthFailureIsNotRetried(t *testing.T) {
	calls := 0
	c := testClient(func() error {
		calls++
		return &websocket.CloseError{Code: 4004, Text: "Authentication failed."}
	})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, StatusFailed, c.Status())
}

func TestRunBlocksUntilCancelled(t *testing.T) {
	c := testClient(func() error { return nil })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, c.Ready, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestRunCancelDuringBackoff(t *testing.T) {
	c := testClient(func() error { return errors.New("dial tcp: timeout") })
	c.delay = time.Minute
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, isAuthFailure(&websocket.CloseError{Code: 4004}))
	assert.False(t, isAuthFailure(&websocket.CloseError{Code: 4000}))
	assert.False(t, isAuthFailure(errors.New("dial tcp: timeout")))
}

func TestOperationsRejectWhenNotReady(t *testing.T) {
	c := testClient(nil)
	ctx := context.Background()

	_, err := c.ResolveChannel("123")
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = c.PostableChannels()
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = c.RecentMessages(ctx, "123", 50)
	assert.ErrorIs(t, err, ErrNotReady)

	assert.ErrorIs(t, c.SendMessage(ctx, "123", "hi"), ErrNotReady)
	assert.ErrorIs(t, c.SendFile(ctx, "123", "", "a.txt", nil), ErrNotReady)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "failed", StatusFailed.String())
}
