package notify_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/notify"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
	"github.com/AchilleasB/campus-portal/directory-service/test/mocks"
)

func TestHub_DeliversToEverySubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(zap.NewNop())
	a := hub.Subscribe(ctx)
	b := hub.Subscribe(ctx)

	evt := mocks.CreateTestEvent("evt-1")
	hub.Publish(evt)

	select {
	case got := <-a:
		assert.Equal(t, evt, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber a got nothing")
	}
	select {
	case got := <-b:
		assert.Equal(t, evt, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber b got nothing")
	}
}

func TestHub_ClosesOnCancel(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)
	require.Equal(t, 1, hub.Subscribers())

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	// Publishing after everyone left must not panic.
	hub.Publish(mocks.CreateTestEvent("late"))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(zap.NewNop())
	_ = hub.Subscribe(ctx) // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.Publish(mocks.CreateTestEvent("evt"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHub_LaggingSubscriberGetsResync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(zap.NewNop())
	ch := hub.Subscribe(ctx)

	for i := 0; i < 100; i++ {
		hub.Publish(mocks.CreateTestEvent(fmt.Sprintf("evt-%d", i)))
	}

	var got []ports.ChangeEvent
	for {
		select {
		case evt := <-ch:
			got = append(got, evt)
			continue
		default:
		}
		break
	}

	require.Len(t, got, 64, "buffer stays bounded")
	last := got[len(got)-1]
	assert.Equal(t, ports.EventResync, last.Name)
	assert.Empty(t, last.Key)
	assert.Equal(t, "evt-99", last.ID)
}

func TestHub_ResyncNotSentToSubscribersKeepingUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(zap.NewNop())
	ch := hub.Subscribe(ctx)

	for i := 0; i < 10; i++ {
		hub.Publish(mocks.CreateTestEvent(fmt.Sprintf("evt-%d", i)))
		got := <-ch
		assert.Equal(t, ports.EventDepartmentsChanged, got.Name)
	}
}
