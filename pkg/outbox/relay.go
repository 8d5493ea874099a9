package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/bookkeeper/pkg/pglock"
)

// beginner is satisfied by *pgxpool.Pool and *pgxpool.Conn.
type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	dispatcher Dispatcher
	opts       RelayOptions
	m          *metrics
	label      string
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}
	opts.setDefaults()
	return &Relay{
		pool:       pool,
		table:      table,
		dispatcher: dispatcher,
		opts:       opts,
		m:          getMetrics(),
		label:      TableLabel(table),
	}, nil
}

// Run polls until ctx is done. With SingleActive only the holder of the table's
// advisory lock dispatches; other instances keep retrying the lock.
func (r *Relay) Run(ctx context.Context) error {
	if !r.opts.SingleActive {
		r.m.relayLeader.WithLabelValues(r.label).Set(1)
		return r.loop(ctx, r.pool)
	}

	for {
		session, err := pglock.Acquire(ctx, r.pool, "outbox:"+r.label)
		if err != nil {
			r.opts.Logger.WithError(err).Warn("outbox: failed to acquire connection for single-active relay")
			if err := wait(ctx, r.opts.PollInterval); err != nil {
				return err
			}
			continue
		}

		leader, err := session.TryLock(ctx)
		if err != nil || !leader {
			session.Close()
			r.m.relayLeader.WithLabelValues(r.label).Set(0)
			if err != nil {
				r.opts.Logger.WithError(err).Warn("outbox: failed to attempt advisory lock")
			}
			if err := wait(ctx, r.opts.PollInterval); err != nil {
				return err
			}
			continue
		}

		r.m.relayLeader.WithLabelValues(r.label).Set(1)
		r.opts.Logger.Info("outbox: relay became leader")

		err = r.loop(ctx, session.Conn())
		_ = session.Unlock(context.Background())
		session.Close()
		r.m.relayLeader.WithLabelValues(r.label).Set(0)
		return err
	}
}

func (r *Relay) loop(ctx context.Context, db beginner) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.processOnce(ctx, db); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
		}
	}
}

type claimed struct {
	ID          uuid.UUID
	Topic       string
	Payload     []byte
	EventID     uuid.UUID
	AggregateID uuid.UUID
	Sequence    int64
	Attempts    int
}

func (r *Relay) processOnce(ctx context.Context, db beginner) error {
	batch, err := r.claim(ctx, db, time.Now())
	if err != nil {
		return err
	}

	for _, c := range batch {
		dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
		start := time.Now()
		err := r.dispatcher.Dispatch(dispatchCtx, DispatchedMessage{
			Meta: Meta{
				Table:       r.table,
				Topic:       c.Topic,
				EventID:     c.EventID,
				AggregateID: c.AggregateID,
				Sequence:    c.Sequence,
				Attempts:    c.Attempts,
			},
			Payload: c.Payload,
		})
		cancel()

		result := "success"
		if err != nil {
			result = "failure"
		}
		r.m.dispatchTotal.WithLabelValues(r.label, c.Topic, result).Inc()
		r.m.dispatchLatency.WithLabelValues(r.label, c.Topic, result).Observe(time.Since(start).Seconds())

		log := r.opts.Logger.WithFields(map[string]any{
			"topic":    c.Topic,
			"event_id": c.EventID.String(),
			"sequence": c.Sequence,
			"attempts": c.Attempts,
		})

		var settleErr error
		switch {
		case err == nil:
			settleErr = r.settle(ctx, db, c.ID, `published_at = now(), locked_at = NULL, last_error = NULL`)
		case c.Attempts >= r.opts.MaxAttempts:
			r.m.deadTotal.WithLabelValues(r.label, c.Topic).Inc()
			settleErr = r.settle(ctx, db, c.ID, `locked_at = NULL, last_error = $2`, truncateError(err, r.opts.LastErrorMaxLen))
		default:
			next := time.Now().Add(backoff(c.Attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
			settleErr = r.settle(ctx, db, c.ID, `locked_at = NULL, last_error = $2, available_at = $3`,
				truncateError(err, r.opts.LastErrorMaxLen), next)
		}
		if settleErr != nil {
			log.WithError(settleErr).Warn("outbox: settle failed")
		}
	}
	return nil
}

func (r *Relay) claim(ctx context.Context, db beginner, now time.Time) ([]claimed, error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tableName := r.table.Sanitize()
	rows, err := tx.Query(ctx, fmt.Sprintf(
		`SELECT id, topic, payload, event_id, aggregate_id, sequence, attempts
		   FROM %s
		  WHERE published_at IS NULL
		    AND available_at <= $1
		    AND attempts < $2
		    AND (locked_at IS NULL OR locked_at < $3)
		  ORDER BY available_at, sequence
		  LIMIT $4
		  FOR UPDATE SKIP LOCKED`, tableName),
		now, r.opts.MaxAttempts, now.Add(-r.opts.LockTTL), r.opts.BatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("outbox claim select: %w", err)
	}

	var batch []claimed
	var ids []uuid.UUID
	for rows.Next() {
		var c claimed
		if err := rows.Scan(&c.ID, &c.Topic, &c.Payload, &c.EventID, &c.AggregateID, &c.Sequence, &c.Attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("outbox claim scan: %w", err)
		}
		c.Attempts++
		batch = append(batch, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox claim rows: %w", err)
	}
	r.m.pending.WithLabelValues(r.label).Set(float64(len(batch)))

	if len(ids) > 0 {
		update := fmt.Sprintf(`UPDATE %s SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`, tableName)
		if _, err := tx.Exec(ctx, update, now, pgtype.FlatArray[uuid.UUID](ids)); err != nil {
			return nil, fmt.Errorf("outbox claim update: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return batch, nil
}

// settle applies set to an unpublished row; $1 is the row id, extra args follow.
func (r *Relay) settle(ctx context.Context, db beginner, id uuid.UUID, set string, args ...any) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 AND published_at IS NULL`, r.table.Sanitize(), set)
	if _, err := tx.Exec(ctx, q, append([]any{id}, args...)...); err != nil {
		return fmt.Errorf("outbox settle: %w", err)
	}
	return tx.Commit(ctx)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Relay) Name() string { return "outbox-relay:" + r.label }
