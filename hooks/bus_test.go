package hooks

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()

	var count1, count2 int32
	_, err := b.Register(SubscriberFunc(func(Event) { atomic.AddInt32(&count1, 1) }))
	require.NoError(t, err)
	_, err = b.Register(SubscriberFunc(func(Event) { atomic.AddInt32(&count2, 1) }))
	require.NoError(t, err)

	b.Publish(Event{Type: SessionStart})
	b.Publish(Event{Type: SessionEnd})

	require.EqualValues(t, 2, count1)
	require.EqualValues(t, 2, count2)
}

func TestBus_RegisterNilSubscriberErrors(t *testing.T) {
	b := NewBus()
	sub, err := b.Register(nil)
	require.Error(t, err)
	require.Nil(t, sub)
}

func TestBus_CloseUnregisters(t *testing.T) {
	b := NewBus()
	var calls int32
	sub, err := b.Register(SubscriberFunc(func(Event) { atomic.AddInt32(&calls, 1) }))
	require.NoError(t, err)

	b.Publish(Event{Type: SessionStart})
	require.NoError(t, sub.Close())
	b.Publish(Event{Type: SessionStart})

	require.EqualValues(t, 1, calls)
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	b := NewBus()
	sub, err := b.Register(SubscriberFunc(func(Event) {}))
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

func TestBus_SubscriberErrorNeverStallsOthers(t *testing.T) {
	b := NewBus()
	var calledAfterPanic bool
	_, err := b.Register(SubscriberFunc(func(Event) {
		defer func() { recover() }()
		panic("boom")
	}))
	require.NoError(t, err)
	_, err = b.Register(SubscriberFunc(func(Event) { calledAfterPanic = true }))
	require.NoError(t, err)

	require.NotPanics(t, func() { b.Publish(Event{Type: ToolCall}) })
	require.True(t, calledAfterPanic)
}

func TestBus_ConcurrentRegisterAndPublish(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := b.Register(SubscriberFunc(func(Event) {}))
			require.NoError(t, err)
			b.Publish(Event{Type: ToolAnalytics})
			require.NoError(t, sub.Close())
		}()
	}
	wg.Wait()
}
