package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

func newBus(async bool) *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = async
	cfg.Logger = logger.Nop()
	return NewInMemoryEventBus(cfg)
}

func completedEvent() shared.Event {
	return shared.NewActivityCompletedEvent("u1", "a1", "math", time.Now())
}

func TestPublish_DeliversToTypedAndGlobalHandlers(t *testing.T) {
	bus := newBus(false)
	var typed, global, other int32

	require.NoError(t, bus.Subscribe(shared.EventActivityCompleted, func(context.Context, shared.Event) error {
		atomic.AddInt32(&typed, 1)
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(context.Context, shared.Event) error {
		atomic.AddInt32(&other, 1)
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(context.Context, shared.Event) error {
		atomic.AddInt32(&global, 1)
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), completedEvent()))

	assert.Equal(t, int32(1), typed)
	assert.Equal(t, int32(1), global)
	assert.Equal(t, int32(0), other)
}

func TestPublish_HandlersAreIndependent(t *testing.T) {
	bus := newBus(false)
	var reached int32

	require.NoError(t, bus.Subscribe(shared.EventActivityCompleted, func(context.Context, shared.Event) error {
		return errors.New("journey store down")
	}))
	require.NoError(t, bus.Subscribe(shared.EventActivityCompleted, func(context.Context, shared.Event) error {
		panic("streak consumer bug")
	}))
	require.NoError(t, bus.Subscribe(shared.EventActivityCompleted, func(context.Context, shared.Event) error {
		atomic.AddInt32(&reached, 1)
		return nil
	}))

	err := bus.Publish(context.Background(), completedEvent())

	require.NoError(t, err)
	assert.Equal(t, int32(1), reached)
	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestPublish_AsyncCompletesBeforeClose(t *testing.T) {
	bus := newBus(true)
	var calls int32
	require.NoError(t, bus.Subscribe(shared.EventActivityCompleted, func(context.Context, shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), completedEvent()))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestPublish_ClosedAndNil(t *testing.T) {
	bus := newBus(false)

	assert.Error(t, bus.Publish(context.Background(), nil))
	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), completedEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(context.Context, shared.Event) error { return nil }), ErrEventBusClosed)
}
