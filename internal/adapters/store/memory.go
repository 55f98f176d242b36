package store

import (
	"context"
	"sync"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// MemoryBackend keeps values in process memory. Several Observed stores
// sharing one MemoryBackend behave like browser tabs sharing one storage
// area: each sees the others' writes as remote change events. Listeners are
// called synchronously from Put.
type MemoryBackend struct {
	mu        sync.RWMutex
	data      map[string][]byte
	listeners map[uint64]func(ports.ChangeEvent)
	nextID    uint64
}

var _ ports.StoreBackend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:      make(map[string][]byte),
		listeners: make(map[uint64]func(ports.ChangeEvent)),
	}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (b *MemoryBackend) Put(ctx context.Context, key string, value []byte, evt ports.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.data[key] = append([]byte(nil), value...)
	listeners := make([]func(ports.ChangeEvent), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(evt)
	}
	return nil
}

func (b *MemoryBackend) Listen(ctx context.Context, fn func(ports.ChangeEvent)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.listeners, id)
	b.mu.Unlock()
	return ctx.Err()
}

// Listeners reports how many Listen calls are active.
func (b *MemoryBackend) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
