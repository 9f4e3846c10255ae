package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxDispatcher drains an outbox table written inside business
// transactions and publishes each row to the broker. Rows that fail to
// publish are retried with capped exponential backoff, so delivery is
// at-least-once without the business transaction ever touching the
// broker.
type OutboxDispatcher struct {
	pool       *pgxpool.Pool
	publisher  Publisher
	table      string
	routingKey string
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
}

type outboxRow struct {
	ID        int64
	EventType string
	Payload   []byte
	Attempts  int
}

// Row lifecycle: 'pending' only for rows never attempted, 'processing'
// for claimed or failed rows gated by next_retry, 'sent' when done. A
// failed row must stay in 'processing' — the 'pending' branch of the
// due query ignores next_retry, so resetting it there would retry at
// every poll tick and the backoff would never apply.

func dueRowsSQL(table string) string {
	return fmt.Sprintf(`
		SELECT id, event_type, payload, attempts
		FROM %s
		WHERE (status = 'pending' OR (status = 'processing' AND next_retry <= NOW()))
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, table)
}

func claimSQL(table string) string {
	return fmt.Sprintf(`
		UPDATE %s
		SET status = 'processing', next_retry = $2, updated_at = NOW()
		WHERE id = $1`, table)
}

func markSentSQL(table string) string {
	return fmt.Sprintf(`
		UPDATE %s
		SET status = 'sent', updated_at = NOW()
		WHERE id = $1`, table)
}

func markFailureSQL(table string) string {
	return fmt.Sprintf(`
		UPDATE %s
		SET status = 'processing',
		    attempts = attempts + 1,
		    next_retry = $2,
		    updated_at = NOW()
		WHERE id = $1`, table)
}

func NewOutboxDispatcher(pool *pgxpool.Pool, publisher Publisher, table, routingKey string, interval time.Duration, batch int, logger *slog.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		pool:       pool,
		publisher:  publisher,
		table:      table,
		routingKey: routingKey,
		interval:   interval,
		batchSize:  batch,
		logger:     logger,
	}
}

func (d *OutboxDispatcher) Start(ctx context.Context) {
	go d.loop(ctx)
}

func (d *OutboxDispatcher) loop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.dispatch(ctx); err != nil {
			d.logger.Error("outbox dispatch failed", "table", d.table, "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *OutboxDispatcher) dispatch(ctx context.Context) error {
	rows, err := d.lockRows(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := d.publishOne(ctx, row); err != nil {
			d.logger.Warn("publish event failed", "table", d.table, "row_id", row.ID, "event_type", row.EventType, "err", err)
		}
	}
	return nil
}

// lockRows claims a batch of due rows with SKIP LOCKED so concurrent
// dispatchers never double-publish within the claim window.
func (d *OutboxDispatcher) lockRows(ctx context.Context) ([]outboxRow, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, dueRowsSQL(d.table), d.batchSize)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var items []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.ID, &row.EventType, &row.Payload, &row.Attempts); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, tx.Commit(ctx)
	}

	releaseAt := time.Now().Add(30 * time.Second)
	for _, row := range items {
		if _, err := tx.Exec(ctx, claimSQL(d.table), row.ID, releaseAt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

func (d *OutboxDispatcher) publishOne(ctx context.Context, row outboxRow) error {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, d.routingKey, row.Payload); err != nil {
		return d.markFailure(ctx, row, err)
	}

	_, err := d.pool.Exec(ctx, markSentSQL(d.table), row.ID)
	return err
}

// markFailure schedules the next attempt. The row stays claimed
// ('processing'), so it only becomes due again once next_retry passes.
func (d *OutboxDispatcher) markFailure(ctx context.Context, row outboxRow, publishErr error) error {
	nextRetry := time.Now().Add(retryDelay(row.Attempts + 1))
	if _, err := d.pool.Exec(ctx, markFailureSQL(d.table), row.ID, nextRetry); err != nil {
		return fmt.Errorf("update retry: %w", err)
	}
	return publishErr
}

func retryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 5 {
		attempts = 5
	}
	delay := time.Duration(1<<attempts) * time.Second
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}
