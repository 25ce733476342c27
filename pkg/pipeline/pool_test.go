package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_TaskExecution(t *testing.T) {
	p := NewPool(2)
	p.Start()

	var called int32
	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, func() error { atomic.AddInt32(&called, 1); return nil }))
	require.NoError(t, p.Submit(ctx, func() error { atomic.AddInt32(&called, 1); return nil }))

	require.NoError(t, p.Close())
	require.Equal(t, int32(2), atomic.LoadInt32(&called))
}

func TestPool_CloseWaitsForLongTask(t *testing.T) {
	p := NewPool(1)
	p.Start()

	var done int32
	require.NoError(t, p.Submit(context.Background(), func() error {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
		return nil
	}))

	require.NoError(t, p.Close())
	require.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestPool_FirstErrorWins(t *testing.T) {
	p := NewPool(1)
	p.Start()

	first := errors.New("first")
	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, func() error { return first }))

	<-p.Failed()

	var ran int32
	err := p.Submit(ctx, func() error { atomic.AddInt32(&ran, 1); return errors.New("second") })
	assert.ErrorIs(t, err, ErrPoolFailed)

	assert.ErrorIs(t, p.Close(), first)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestPool_PanicBecomesError(t *testing.T) {
	p := NewPool(2)
	p.Start()
	require.NoError(t, p.Submit(context.Background(), func() error { panic("boom") }))

	err := p.Close()
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	p := NewPool(1)
	p.Start()

	release := make(chan struct{})
	ctx := context.Background()
	// One task running, one buffered: the third submit has to wait.
	require.NoError(t, p.Submit(ctx, func() error { <-release; return nil }))
	require.NoError(t, p.Submit(ctx, func() error { return nil }))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := p.Submit(cancelled, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, p.Close())
}

func TestPool_SubmitAfterClosePanics(t *testing.T) {
	p := NewPool(1)
	p.Start()
	require.NoError(t, p.Close())

	assert.Panics(t, func() {
		_ = p.Submit(context.Background(), func() error { return nil })
	})
}
