package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/config"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
	"github.com/AchilleasB/campus-portal/directory-service/test/mocks"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declaredName string
	declaredKind string
	declareErr   error
	publishErr   error
	published    []publishCall
	closed       bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declaredName = name
	f.declaredKind = kind
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestBroker(t *testing.T, ch *fakeChannel) *RabbitMQBroker {
	t.Helper()
	broker, err := newBroker(ch, "directory.changes", config.NewCircuitBreaker(config.BreakerRabbitMQ, zap.NewNop()))
	require.NoError(t, err)
	return broker
}

func TestNewBroker_DeclaresFanoutExchange(t *testing.T) {
	ch := &fakeChannel{}
	newTestBroker(t, ch)

	assert.Equal(t, "directory.changes", ch.declaredName)
	assert.Equal(t, amqp.ExchangeFanout, ch.declaredKind)
}

func TestNewBroker_DeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}

	_, err := newBroker(ch, "directory.changes", config.NewCircuitBreaker(config.BreakerRabbitMQ, zap.NewNop()))
	assert.ErrorIs(t, err, ch.declareErr)
	assert.True(t, ch.closed)
}

func TestPublishChange(t *testing.T) {
	ch := &fakeChannel{}
	broker := newTestBroker(t, ch)
	evt := mocks.CreateTestEvent("evt-1")

	require.NoError(t, broker.PublishChange(context.Background(), evt))

	require.Len(t, ch.published, 1)
	call := ch.published[0]
	assert.Equal(t, "directory.changes", call.exchange)
	assert.Equal(t, ports.EventDepartmentsChanged, call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, "evt-1", call.msg.MessageId)

	var got ports.ChangeEvent
	require.NoError(t, json.Unmarshal(call.msg.Body, &got))
	assert.Equal(t, evt, got)
}

func TestPublishChange_ExpiredContext(t *testing.T) {
	ch := &fakeChannel{}
	broker := newTestBroker(t, ch)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := broker.PublishChange(ctx, mocks.CreateTestEvent("evt-1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, ch.published)
}

func TestPublishChange_Error(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	broker := newTestBroker(t, ch)

	err := broker.PublishChange(context.Background(), mocks.CreateTestEvent("evt-1"))
	assert.ErrorIs(t, err, ch.publishErr)
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	broker := newTestBroker(t, ch)

	require.NoError(t, broker.Close())
	assert.True(t, ch.closed)
}
