package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/config"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// amqpChannel is the part of *amqp.Channel the broker needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQBroker implements ports.ChangePublisher on a fanout exchange so
// every bound consumer receives every directory change.
type RabbitMQBroker struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	cb       *gobreaker.CircuitBreaker
}

var _ ports.ChangePublisher = (*RabbitMQBroker)(nil)

func NewRabbitMQBroker(amqpURL, exchange string, logger *zap.Logger) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	rmq, err := newBroker(ch, exchange, config.NewCircuitBreaker(config.BreakerRabbitMQ, logger))
	if err != nil {
		conn.Close()
		return nil, err
	}
	rmq.conn = conn
	return rmq, nil
}

func newBroker(ch amqpChannel, exchange string, cb *gobreaker.CircuitBreaker) (*RabbitMQBroker, error) {
	// Declare the exchange (idempotent)
	err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &RabbitMQBroker{
		ch:       ch,
		exchange: exchange,
		cb:       cb,
	}, nil
}

func (rmq *RabbitMQBroker) PublishChange(ctx context.Context, evt ports.ChangeEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			rmq.exchange,
			evt.Name, // routing key, ignored by fanout but useful on rebinding
			false,    // mandatory
			false,    // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    evt.ID,
				Timestamp:    evt.At,
				Type:         evt.Name,
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}

func (rmq *RabbitMQBroker) Close() error {
	if rmq.ch != nil {
		if err := rmq.ch.Close(); err != nil {
			return err
		}
	}
	if rmq.conn != nil {
		return rmq.conn.Close()
	}
	return nil
}
