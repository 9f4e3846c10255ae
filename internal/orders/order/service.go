package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gomart/internal/orders/monitoring"
	"gomart/pkg/contracts"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

// Notifier receives a best-effort in-process signal after an order has
// durably committed. Implementations must not block the caller.
type Notifier interface {
	NotifyOrderCreated(o *Order)
}

type Service struct {
	pool     *pgxpool.Pool
	notifier Notifier
}

func NewService(pool *pgxpool.Pool, notifier Notifier) *Service {
	return &Service{pool: pool, notifier: notifier}
}

// Create persists the order, its items and the creation event's outbox
// row in a single transaction. This is the only consistency boundary in
// the system: either everything commits or nothing does. The broker is
// never touched here; the outbox dispatcher delivers the event later,
// so a broker outage cannot fail or block order creation.
func (s *Service) Create(ctx context.Context, customerID int64, reqs []ItemRequest) (*Order, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("order must contain at least one item")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	o := buildOrder(customerID, reqs, now)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id`,
		o.CustomerID, o.TotalAmount, o.Status, now,
	).Scan(&o.ID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	payload, err := json.Marshal(newCreatedEvent(o))
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_outbox (event_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		uuid.New(), contracts.EventTypeOrderCreated, payload,
	)
	if err != nil {
		return nil, fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	monitoring.OrdersCreatedTotal.Inc()
	if s.notifier != nil {
		s.notifier.NotifyOrderCreated(o)
	}
	return o, nil
}

// newCreatedEvent builds the wire event from persisted values: the
// assigned identity and the transaction's creation instant.
func newCreatedEvent(o *Order) contracts.OrderCreatedEvent {
	return contracts.OrderCreatedEvent{
		Label:      contracts.OrderCreatedLabel,
		OrderID:    o.ID,
		Amount:     o.TotalAmount,
		CustomerID: o.CustomerID,
		CreatedAt:  o.CreatedAt,
	}
}

func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.query(ctx, nil)
}

func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Order, error) {
	return s.query(ctx, BuildClauses(filter))
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, total_amount, status, created_at, updated_at
		FROM orders
		WHERE id = $1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsByOrder, err := s.loadItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = itemsByOrder[o.ID]
	if o.Items == nil {
		o.Items = []Item{}
	}
	return &o, nil
}

func (s *Service) query(ctx context.Context, clauses []Clause) ([]Order, error) {
	where, args := whereSQL(clauses)
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, total_amount, status, created_at, updated_at
		FROM orders`+where+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	var ids []int64
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Items = []Item{}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemsByOrder, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return orders, nil
}

func (s *Service) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]Item)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		result[it.OrderID] = append(result[it.OrderID], it)
	}
	return result, rows.Err()
}
