package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

const (
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	listenerPingInterval         = 90 * time.Second
)

// PostgresBackend keeps collections in kv_entries. Every write records an
// outbox row for the relay and fires NOTIFY on the change channel in the
// same transaction, so listeners never see an event for an uncommitted value.
type PostgresBackend struct {
	db      *sql.DB
	dbURL   string
	channel string
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.StoreBackend = (*PostgresBackend)(nil)

func NewPostgresBackend(db *sql.DB, dbURL, channel string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *PostgresBackend {
	return &PostgresBackend{
		db:      db,
		dbURL:   dbURL,
		channel: channel,
		cb:      cb,
		logger:  logger,
	}
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		var value []byte
		err := b.db.QueryRowContext(ctx,
			"SELECT value FROM kv_entries WHERE key = $1", key,
		).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return []byte(nil), nil
		}
		return value, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return result.([]byte), nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, value []byte, evt ports.ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	_, err = b.cb.Execute(func() (interface{}, error) {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			key, string(value),
		); err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO directory_outbox (id, event_name, key, origin, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			evt.ID, evt.Name, evt.Key, evt.Origin, string(payload), evt.At,
		); err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", b.channel, string(payload)); err != nil {
			return nil, err
		}

		return nil, tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("postgres put %s: %w", key, err)
	}
	return nil
}

// Listen relays NOTIFY payloads on the change channel until ctx is done.
func (b *PostgresBackend) Listen(ctx context.Context, fn func(ports.ChangeEvent)) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			b.logger.Warn("change listener problem", zap.Int("event", int(ev)), zap.Error(err))
		}
	}

	listener := pq.NewListener(b.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(b.channel); err != nil {
		return fmt.Errorf("listen %s: %w", b.channel, err)
	}

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-listener.Notify:
			if n == nil {
				// Connection was re-established; notifications sent while it
				// was down are gone.
				b.logger.Warn("change listener reconnected, notifications may have been missed")
				continue
			}
			var evt ports.ChangeEvent
			if err := json.Unmarshal([]byte(n.Extra), &evt); err != nil {
				b.logger.Warn("ignoring malformed change notification", zap.Error(err))
				continue
			}
			fn(evt)
		case <-ticker.C:
			go listener.Ping()
		}
	}
}
