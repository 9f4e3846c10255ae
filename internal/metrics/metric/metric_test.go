package metric

import (
	"testing"
	"time"

	"gomart/pkg/contracts"

	"github.com/shopspring/decimal"
)

func TestFromEventCopiesFieldsVerbatim(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	evt := contracts.OrderCreatedEvent{
		Label:      contracts.OrderCreatedLabel,
		OrderID:    7,
		Amount:     decimal.RequireFromString("12.50"),
		CustomerID: 42,
		CreatedAt:  created,
	}

	m := FromEvent(evt)

	if m.ID != 0 {
		t.Errorf("id = %d, want unset before persistence", m.ID)
	}
	if m.OrderID != 7 || m.CustomerID != 42 {
		t.Errorf("ids = (%d, %d), want (7, 42)", m.OrderID, m.CustomerID)
	}
	if !m.Amount.Equal(evt.Amount) {
		t.Errorf("amount = %s, want %s", m.Amount, evt.Amount)
	}
	if m.Event != "Order Created" {
		t.Errorf("event = %q, want %q", m.Event, "Order Created")
	}
	// The created timestamp is the order's, never the ingestion time.
	if !m.CreatedAt.Equal(created) {
		t.Errorf("createdAt = %v, want %v", m.CreatedAt, created)
	}
}
