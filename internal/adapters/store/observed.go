// Package store implements ports.Store on top of a ports.StoreBackend and
// provides the memory and Redis backends.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/notify"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// Observed is the Store the application writes through. Each Set is
// persisted by the backend, which broadcasts it to other sessions, and is
// then published on the local hub. Run feeds other sessions' writes into the
// same hub.
type Observed struct {
	backend ports.StoreBackend
	hub     *notify.Hub
	keys    ports.Keys
	origin  string
	now     func() time.Time
	logger  *zap.Logger
}

var (
	_ ports.Store          = (*Observed)(nil)
	_ ports.ChangeNotifier = (*Observed)(nil)
)

func NewObserved(backend ports.StoreBackend, hub *notify.Hub, keys ports.Keys, logger *zap.Logger) *Observed {
	return &Observed{
		backend: backend,
		hub:     hub,
		keys:    keys,
		origin:  uuid.NewString(),
		now:     time.Now,
		logger:  logger,
	}
}

// Origin identifies this store on change events it emits.
func (s *Observed) Origin() string {
	return s.origin
}

func (s *Observed) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, key)
}

func (s *Observed) Set(ctx context.Context, key string, value []byte) error {
	evt := ports.ChangeEvent{
		ID:     uuid.NewString(),
		Name:   s.keys.EventName(key),
		Key:    key,
		Origin: s.origin,
		At:     s.now().UTC(),
	}
	if err := s.backend.Put(ctx, key, value, evt); err != nil {
		return err
	}
	s.hub.Publish(evt)
	return nil
}

func (s *Observed) Subscribe(ctx context.Context) <-chan ports.ChangeEvent {
	return s.hub.Subscribe(ctx)
}

// Run relays changes written by other sessions to local subscribers until
// ctx is done. Events this store wrote itself were already published by Set.
func (s *Observed) Run(ctx context.Context) error {
	s.logger.Info("listening for remote directory changes", zap.String("origin", s.origin))
	return s.backend.Listen(ctx, func(evt ports.ChangeEvent) {
		if evt.Origin == s.origin {
			return
		}
		s.hub.Publish(evt)
	})
}
