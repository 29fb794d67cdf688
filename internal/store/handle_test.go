package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWaitReleasesAllWaiters(t *testing.T) {
	handle := newHandle()

	const waiters = 25
	results := make(chan any, waiters)

	started := sync.WaitGroup{}
	started.Add(waiters)
	completed := sync.WaitGroup{}
	completed.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			started.Done()
			value, err, ok := handle.Wait(context.Background(), 10*time.Second)
			assert.True(t, ok)
			assert.NoError(t, err)
			results <- value
			completed.Done()
		}()
	}

	started.Wait()
	handle.MarkReady("value1")
	completed.Wait()

	close(results)
	for value := range results {
		assert.Equal(t, "value1", value)
	}
}

func TestHandleWaitAfterResolution(t *testing.T) {
	handle := newHandle()
	handle.MarkReady(42)

	// An already resolved handle returns without blocking, even with a
	// zero timeout and a cancelled context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value, err, ok := handle.Wait(ctx, 0)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, 42, value)
}

func TestHandleWaitTimeout(t *testing.T) {
	handle := newHandle()

	value, err, ok := handle.Wait(context.Background(), 1*time.Millisecond)
	require.False(t, ok)
	require.NoError(t, err)
	require.Nil(t, value)

	// The timed out wait must not have touched the handle
	handle.MarkReady("late")
	value, err, ok = handle.Wait(context.Background(), time.Second)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "late", value)
}

func TestHandleWaitContextCancelled(t *testing.T) {
	handle := newHandle()

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	_, _, ok := handle.Wait(ctx, 10*time.Second)
	require.False(t, ok)
}

func TestHandleFailureBroadcast(t *testing.T) {
	handle := newHandle()
	failure := errors.New("error1")

	completed := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		completed.Add(1)
		go func() {
			_, err, ok := handle.Wait(context.Background(), 10*time.Second)
			assert.True(t, ok)
			assert.ErrorIs(t, err, failure)
			completed.Done()
		}()
	}

	handle.MarkFailed(failure)
	completed.Wait()
}

func TestHandleDoubleResolvePanics(t *testing.T) {
	handle := newHandle()
	handle.MarkReady("value1")

	assert.Panics(t, func() {
		handle.MarkReady("value2")
	})
	assert.Panics(t, func() {
		handle.MarkFailed(errors.New("error1"))
	})
}
