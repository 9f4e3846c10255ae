// Package metric owns the analytics aggregate fed by order lifecycle
// events. Metrics live in their own store, behind a separate service
// boundary from orders.
package metric

import (
	"context"
	"fmt"
	"time"

	"gomart/pkg/contracts"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Metric is one analytics row derived from an order event.
type Metric struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customerId"`
	OrderID    int64           `json:"orderId"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"createdAt"`
	Event      string          `json:"event"`
}

// FromEvent copies the event fields verbatim. CreatedAt is the order's
// creation instant, not the ingestion time.
func FromEvent(evt contracts.OrderCreatedEvent) Metric {
	return Metric{
		CustomerID: evt.CustomerID,
		OrderID:    evt.OrderID,
		Amount:     evt.Amount,
		CreatedAt:  evt.CreatedAt,
		Event:      evt.Label,
	}
}

type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record inserts the metric. Redelivered events hit the (order_id,
// event) dedup constraint and report inserted=false instead of creating
// a duplicate row, which makes at-least-once delivery safe to count.
func (r *Recorder) Record(ctx context.Context, m Metric) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO metrics (customer_id, order_id, amount, created_at, event)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id, event) DO NOTHING`,
		m.CustomerID, m.OrderID, m.Amount, m.CreatedAt, m.Event,
	)
	if err != nil {
		return false, fmt.Errorf("insert metric: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
