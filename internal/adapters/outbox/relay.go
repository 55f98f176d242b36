package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

const (
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute

	eventProcessTimeout     = 30 * time.Second
	batchProcessTimeout     = 60 * time.Second
	periodicProcessInterval = 90 * time.Second

	healthCheckStaleThreshold = 5 * time.Minute

	maxEventsPerBatch = 100
)

// Relay forwards directory changes recorded in directory_outbox to the
// ChangePublisher. It wakes on the NOTIFY fired by each write and sweeps
// periodically for anything the notifications missed.
type Relay struct {
	db        *sql.DB
	dbURL     string
	channel   string
	publisher ports.ChangePublisher
	dbCB      *gobreaker.CircuitBreaker
	logger    *zap.Logger

	mu            sync.RWMutex
	lastProcessed time.Time
	healthy       bool
}

func NewRelay(db *sql.DB, dbURL, channel string, publisher ports.ChangePublisher, dbCB *gobreaker.CircuitBreaker, logger *zap.Logger) *Relay {
	return &Relay{
		db:            db,
		dbURL:         dbURL,
		channel:       channel,
		publisher:     publisher,
		dbCB:          dbCB,
		logger:        logger,
		lastProcessed: time.Now(),
		healthy:       true,
	}
}

// IsHealthy is the liveness check. An open breaker is degraded but
// recoverable, so it does not count here.
func (r *Relay) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthy
}

// IsReady is the readiness check.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.lastProcessed) > healthCheckStaleThreshold {
		return false
	}
	return r.healthy
}

// Start blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Warn("outbox listener error", zap.Error(err))
		}
	}

	listener := pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(r.channel); err != nil {
		return err
	}

	r.logger.Info("outbox relay listening", zap.String("channel", r.channel))

	// Catch up on anything written while the relay was down
	if err := r.ProcessPending(ctx); err != nil {
		r.logger.Error("outbox startup backlog failed", zap.Error(err))
	}

	ticker := time.NewTicker(periodicProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay shutting down")
			return ctx.Err()

		case n := <-listener.Notify:
			if n == nil {
				r.logger.Warn("outbox listener reconnecting")
				r.setHealthy(false)
				continue
			}

			id, err := eventID(n.Extra)
			if err != nil {
				r.logger.Warn("ignoring malformed outbox notification", zap.Error(err))
				continue
			}

			if err := r.ProcessEvent(ctx, id); err != nil {
				r.logger.Error("outbox event failed", zap.String("event_id", id), zap.Error(err))
			} else {
				r.markProcessed()
			}

		case <-ticker.C:
			go listener.Ping()

			if err := r.ProcessPending(ctx); err != nil {
				r.logger.Error("outbox sweep failed", zap.Error(err))
			} else {
				r.markProcessed()
			}
		}
	}
}

// ProcessEvent publishes one outbox row and marks it processed. A row that
// is already processed or locked by another relay is skipped.
func (r *Relay) ProcessEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var payload []byte
		err = tx.QueryRowContext(ctx, `
			SELECT payload
			FROM directory_outbox
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, id).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := r.forward(ctx, id, payload); err != nil {
			return nil, err
		}
		if err := markDone(ctx, tx, id); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

// ProcessPending publishes up to one batch of unprocessed rows, oldest first.
// Rows whose publish fails stay pending for the next sweep.
func (r *Relay) ProcessPending(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, payload
			FROM directory_outbox
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}

		type record struct {
			ID      string
			Payload []byte
		}

		var records []record
		for rows.Next() {
			var rec record
			if err := rows.Scan(&rec.ID, &rec.Payload); err != nil {
				rows.Close()
				return nil, err
			}
			records = append(records, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, rec := range records {
			if err := r.forward(ctx, rec.ID, rec.Payload); err != nil {
				r.logger.Warn("outbox publish failed, will retry",
					zap.String("event_id", rec.ID),
					zap.Error(err),
				)
				continue
			}
			if err := markDone(ctx, tx, rec.ID); err != nil {
				return nil, err
			}
			r.logger.Debug("outbox event processed", zap.String("event_id", rec.ID))
		}

		return nil, tx.Commit()
	})
	return err
}

// forward publishes a stored payload. Undecodable payloads are dropped so
// they are not retried forever.
func (r *Relay) forward(ctx context.Context, id string, payload []byte) error {
	var evt ports.ChangeEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		r.logger.Warn("invalid outbox payload, discarding",
			zap.String("event_id", id),
			zap.Error(err),
		)
		return nil
	}
	return r.publisher.PublishChange(ctx, evt)
}

func markDone(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE directory_outbox SET processed_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *Relay) markProcessed() {
	r.mu.Lock()
	r.lastProcessed = time.Now()
	r.healthy = true
	r.mu.Unlock()
}

func (r *Relay) setHealthy(ok bool) {
	r.mu.Lock()
	r.healthy = ok
	r.mu.Unlock()
}

// eventID extracts the outbox row id from a NOTIFY payload.
func eventID(payload string) (string, error) {
	var evt struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return "", err
	}
	if evt.ID == "" {
		return "", errors.New("notification has no event id")
	}
	return evt.ID, nil
}
