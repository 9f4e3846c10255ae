package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

// StatusPending is the only status ever assigned today. Further states
// exist conceptually but no transition logic drives them yet.
// TODO: add confirmed/shipped/cancelled once an endpoint exists to move
// orders out of PENDING.
const StatusPending Status = "PENDING"

// Order is the aggregate root. Items share its exact lifetime: they are
// written in the same transaction and cascade-deleted with the order.
type Order struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []Item          `json:"items"`
}

// Item is one order line. The back-reference to the owning order is
// never serialized outward.
type Item struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"-"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// ItemRequest is a validated line request entering the creation workflow.
type ItemRequest struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// buildOrder materializes items in input order and computes the total as
// the exact decimal sum of unitPrice * quantity. Both timestamps carry
// the same instant at creation.
func buildOrder(customerID int64, reqs []ItemRequest, now time.Time) *Order {
	items := make([]Item, len(reqs))
	total := decimal.Zero
	for i, r := range reqs {
		items[i] = Item{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
		}
		total = total.Add(r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity))))
	}

	return &Order{
		CustomerID:  customerID,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       items,
	}
}
