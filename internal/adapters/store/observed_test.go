package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/notify"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/store"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

func newObserved(backend ports.StoreBackend) *store.Observed {
	logger := zap.NewNop()
	return store.NewObserved(backend, notify.NewHub(logger), ports.DefaultKeys(""), logger)
}

func receive(t *testing.T, ch <-chan ports.ChangeEvent) ports.ChangeEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("no change event received")
	}
	return ports.ChangeEvent{}
}

func assertQuiet(t *testing.T, ch <-chan ports.ChangeEvent) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected change event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestObserved_GetMissingKey(t *testing.T) {
	s := newObserved(store.NewMemoryBackend())

	v, err := s.Get(context.Background(), "directory:departments")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestObserved_SetNotifiesLocally(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := ports.DefaultKeys("")
	s := newObserved(store.NewMemoryBackend())
	events := s.Subscribe(ctx)

	require.NoError(t, s.Set(ctx, keys.Departments, []byte(`[]`)))
	evt := receive(t, events)
	assert.Equal(t, ports.EventDepartmentsChanged, evt.Name)
	assert.Equal(t, keys.Departments, evt.Key)
	assert.Equal(t, s.Origin(), evt.Origin)
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.At.IsZero())

	require.NoError(t, s.Set(ctx, keys.Students, []byte(`[]`)))
	evt = receive(t, events)
	assert.Equal(t, ports.EventStorageChanged, evt.Name)
	assert.Equal(t, keys.Students, evt.Key)

	v, err := s.Get(ctx, keys.Students)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))
}

func TestObserved_RemoteWritesArriveOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := ports.DefaultKeys("")
	backend := store.NewMemoryBackend()
	a := newObserved(backend)
	b := newObserved(backend)
	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()
	require.Eventually(t, func() bool { return backend.Listeners() == 2 }, time.Second, 5*time.Millisecond)

	eventsA := a.Subscribe(ctx)
	eventsB := b.Subscribe(ctx)

	require.NoError(t, a.Set(ctx, keys.Faculty, []byte(`[{"id":"f1","name":"Dr. Aisha Khan"}]`)))

	gotA := receive(t, eventsA)
	gotB := receive(t, eventsB)
	assert.Equal(t, gotA, gotB)
	assert.Equal(t, a.Origin(), gotB.Origin)

	assertQuiet(t, eventsA)
	assertQuiet(t, eventsB)

	v, err := b.Get(ctx, keys.Faculty)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"f1","name":"Dr. Aisha Khan"}]`, string(v))
}

func TestObserved_RunStopsWithContext(t *testing.T) {
	backend := store.NewMemoryBackend()
	s := newObserved(backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.Eventually(t, func() bool { return backend.Listeners() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 0, backend.Listeners())
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()

	value := []byte(`["a"]`)
	require.NoError(t, backend.Put(ctx, "k", value, ports.ChangeEvent{}))
	value[2] = 'b'

	got, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, string(got))
}
