package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// MockChangePublisher implements ports.ChangePublisher so the relay can be
// tested without RabbitMQ.
type MockChangePublisher struct {
	mu sync.RWMutex

	// Track published events for verification
	PublishedEvents []ports.ChangeEvent

	// Error injection for testing error scenarios
	PublishError error

	PublishCallCount int
}

var _ ports.ChangePublisher = (*MockChangePublisher)(nil)

func NewMockChangePublisher() *MockChangePublisher {
	return &MockChangePublisher{
		PublishedEvents: make([]ports.ChangeEvent, 0),
	}
}

func (m *MockChangePublisher) PublishChange(ctx context.Context, evt ports.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

func (m *MockChangePublisher) GetPublishedEvents() []ports.ChangeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ports.ChangeEvent, len(m.PublishedEvents))
	copy(out, m.PublishedEvents)
	return out
}

func (m *MockChangePublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}

func (m *MockChangePublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = make([]ports.ChangeEvent, 0)
	m.PublishCallCount = 0
	m.PublishError = nil
}
