package ports

import (
	"context"
	"time"
)

// Change notification names. Department writes use their own name so views
// that only show departments can ignore the rest.
const (
	EventDepartmentsChanged = "department-changed"
	EventStorageChanged     = "storage-changed"
)

// EventResync tells a subscriber it missed events and must reload every key.
// It carries no key.
const EventResync = "resync"

// ChangeEvent announces that a key in the store was rewritten.
type ChangeEvent struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Key    string    `json:"key"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Store is a string-keyed JSON blob store. Get returns nil, nil for a key
// that was never written. Every Set is announced to subscribers in this
// process and to every other session sharing the same backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ChangeNotifier delivers change events until ctx is done, then closes the
// channel.
type ChangeNotifier interface {
	Subscribe(ctx context.Context) <-chan ChangeEvent
}

// StoreBackend is the durable half of a Store. Put persists the value and
// broadcasts evt to every Listen call on any backend instance sharing the
// same storage. Listen blocks until ctx is done.
type StoreBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, evt ChangeEvent) error
	Listen(ctx context.Context, fn func(ChangeEvent)) error
}

// Keys names the three collections in the store.
type Keys struct {
	Departments string
	Students    string
	Faculty     string
}

func DefaultKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "directory"
	}
	return Keys{
		Departments: prefix + ":departments",
		Students:    prefix + ":students",
		Faculty:     prefix + ":faculty",
	}
}

// EventName returns the notification name used when key is written.
func (k Keys) EventName(key string) string {
	if key == k.Departments {
		return EventDepartmentsChanged
	}
	return EventStorageChanged
}
