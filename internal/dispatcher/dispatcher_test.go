package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
)

func TestDispatchReturnsExecuteResult(t *testing.T) {
	d := New(4, func(ctx context.Context, id uuid.UUID, cmd int) (int, error) {
		return cmd * 2, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	out, err := d.Dispatch(ctx, uuid.New(), 21)
	require.NoError(t, err)
	require.Equal(t, 42, out)
}

func TestDispatchReturnsErrOverloadedWhenChannelFull(t *testing.T) {
	block := make(chan struct{})
	d := New(1, func(ctx context.Context, id uuid.UUID, cmd int) (int, error) {
		<-block
		return cmd, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(ctx, uuid.New(), 1)
		close(done)
	}()
	// give the worker goroutine time to pick up the in-flight request and
	// block on it, so the channel is genuinely saturated below.
	time.Sleep(20 * time.Millisecond)

	// fill the one-slot channel with a second request that will sit queued
	// behind the in-flight one, then a third must be rejected immediately.
	go func() {
		_, _ = d.Dispatch(ctx, uuid.New(), 2)
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := d.Dispatch(ctx, uuid.New(), 3)
	require.ErrorIs(t, err, apperr.ErrOverloaded)

	close(block)
	<-done
}

func TestDispatchContextCancellation(t *testing.T) {
	d := New(1, func(ctx context.Context, id uuid.UUID, cmd int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	reqCtx, reqCancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(reqCtx, uuid.New(), 1)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	reqCancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after context cancellation")
	}
	cancel()
}
