package ports

import "context"

// ChangePublisher forwards change events to other services.
type ChangePublisher interface {
	PublishChange(ctx context.Context, evt ChangeEvent) error
}
