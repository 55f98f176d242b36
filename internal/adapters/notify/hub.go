// Package notify fans change events out to subscribers in this process.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

const defaultBuffer = 64

// Hub delivers every published event to every live subscriber without
// blocking writers. When a subscriber's buffer is full its oldest event is
// replaced by a resync event, so a lagging reader learns it must reload
// everything instead of silently missing a change.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan ports.ChangeEvent
	nextID uint64
	buffer int
	logger *zap.Logger
}

var _ ports.ChangeNotifier = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]chan ports.ChangeEvent),
		buffer: defaultBuffer,
		logger: logger,
	}
}

// Subscribe returns a channel of events published from now on. The channel is
// closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context) <-chan ports.ChangeEvent {
	ch := make(chan ports.ChangeEvent, h.buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

func (h *Hub) Publish(evt ports.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- evt:
			continue
		default:
		}

		h.logger.Warn("subscriber lagging, requesting resync",
			zap.Uint64("subscriber", id),
			zap.String("key", evt.Key),
			zap.String("event", evt.Name),
		)
		// The resync covers evt and the evicted event: it is queued after
		// both writes happened.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- resyncEvent(evt):
		default:
			h.logger.Warn("resync event dropped", zap.Uint64("subscriber", id))
		}
	}
}

func resyncEvent(cause ports.ChangeEvent) ports.ChangeEvent {
	return ports.ChangeEvent{
		ID:     cause.ID,
		Name:   ports.EventResync,
		Origin: cause.Origin,
		At:     cause.At,
	}
}

// Subscribers reports how many subscriptions are live.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
