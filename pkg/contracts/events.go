// Package contracts holds the wire schemas shared between the order
// service and the metrics service. Field names are part of the message
// contract and must not change.
package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts ride the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderCreatedLabel is the free-text name stamped on every order
// creation event and copied verbatim into metric rows downstream.
const OrderCreatedLabel = "Order Created"

// EventTypeOrderCreated identifies order creation events in the outbox.
const EventTypeOrderCreated = "order.created"

// OrderCreatedEvent is published once per durably committed order. It is
// constructed from the persisted row, never from request-time values.
type OrderCreatedEvent struct {
	Label      string          `json:"label"`
	OrderID    int64           `json:"orderId"`
	Amount     decimal.Decimal `json:"amount"`
	CustomerID int64           `json:"customerId"`
	CreatedAt  time.Time       `json:"createdAt"`
}
