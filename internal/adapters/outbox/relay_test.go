package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/config"
	"github.com/AchilleasB/campus-portal/directory-service/test/mocks"
)

func TestEventID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"change event", `{"id":"7d1c","name":"department-changed","key":"directory:departments"}`, "7d1c", false},
		{"missing id", `{"name":"storage-changed"}`, "", true},
		{"not json", `7d1c`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eventID(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestRelay(publisher *mocks.MockChangePublisher) *Relay {
	logger := zap.NewNop()
	return NewRelay(nil, "", "directory_changes", publisher, config.NewCircuitBreaker(config.BreakerRelayDB, logger), logger)
}

func TestRelay_HealthState(t *testing.T) {
	relay := newTestRelay(mocks.NewMockChangePublisher())

	assert.True(t, relay.IsHealthy())
	assert.True(t, relay.IsReady())

	relay.setHealthy(false)
	assert.False(t, relay.IsHealthy())
	assert.False(t, relay.IsReady())

	relay.markProcessed()
	assert.True(t, relay.IsHealthy())
}

func TestRelay_ForwardPublishesDecodedEvent(t *testing.T) {
	publisher := mocks.NewMockChangePublisher()
	relay := newTestRelay(publisher)

	payload := []byte(`{"id":"evt-1","name":"department-changed","key":"directory:departments","origin":"o","at":"2025-09-01T08:00:00Z"}`)
	require.NoError(t, relay.forward(t.Context(), "evt-1", payload))

	events := publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, mocks.CreateTestEvent("evt-1").Key, events[0].Key)
	assert.Equal(t, "evt-1", events[0].ID)
}

func TestRelay_ForwardDropsInvalidPayload(t *testing.T) {
	publisher := mocks.NewMockChangePublisher()
	relay := newTestRelay(publisher)

	assert.NoError(t, relay.forward(t.Context(), "evt-1", []byte(`{broken`)))
	assert.Equal(t, 0, publisher.GetPublishCount())
}

func TestRelay_ForwardReturnsPublishError(t *testing.T) {
	publisher := mocks.NewMockChangePublisher()
	publisher.PublishError = assert.AnError
	relay := newTestRelay(publisher)

	err := relay.forward(t.Context(), "evt-1", []byte(`{"id":"evt-1"}`))
	assert.ErrorIs(t, err, assert.AnError)
}
