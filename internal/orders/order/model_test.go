package order

import (
	"testing"
	"time"

	"gomart/pkg/contracts"

	"github.com/shopspring/decimal"
)

func item(productID int64, qty int, price string) ItemRequest {
	return ItemRequest{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestBuildOrderTotalIsExact(t *testing.T) {
	tests := []struct {
		name  string
		reqs  []ItemRequest
		total string
	}{
		{
			name:  "three lines of quantity three at 0.10",
			reqs:  []ItemRequest{item(1, 3, "0.10"), item(2, 3, "0.10"), item(3, 3, "0.10")},
			total: "0.90",
		},
		{
			name:  "single line",
			reqs:  []ItemRequest{item(7, 2, "19.99")},
			total: "39.98",
		},
		{
			name:  "mixed prices accumulate without drift",
			reqs:  []ItemRequest{item(1, 1, "0.1"), item(2, 1, "0.2")},
			total: "0.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := buildOrder(42, tt.reqs, time.Now().UTC())
			want := decimal.RequireFromString(tt.total)
			if !o.TotalAmount.Equal(want) {
				t.Fatalf("total = %s, want %s", o.TotalAmount, want)
			}
		})
	}
}

func TestBuildOrderDefaults(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	o := buildOrder(42, []ItemRequest{item(10, 2, "5.00"), item(20, 1, "1.25")}, now)

	if o.Status != StatusPending {
		t.Errorf("status = %q, want %q", o.Status, StatusPending)
	}
	if !o.CreatedAt.Equal(now) || !o.UpdatedAt.Equal(now) {
		t.Errorf("createdAt = %v, updatedAt = %v, want both %v", o.CreatedAt, o.UpdatedAt, now)
	}
	if o.CustomerID != 42 {
		t.Errorf("customerID = %d, want 42", o.CustomerID)
	}

	if len(o.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(o.Items))
	}
	// Input order is preserved.
	if o.Items[0].ProductID != 10 || o.Items[1].ProductID != 20 {
		t.Errorf("item order = [%d, %d], want [10, 20]", o.Items[0].ProductID, o.Items[1].ProductID)
	}
	if o.Items[0].Quantity != 2 || !o.Items[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("first item = %+v, want quantity 2 at 5.00", o.Items[0])
	}
}

func TestNewCreatedEventUsesPersistedValues(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := &Order{
		ID:          17,
		CustomerID:  42,
		TotalAmount: decimal.RequireFromString("99.90"),
		Status:      StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	evt := newCreatedEvent(o)

	if evt.Label != contracts.OrderCreatedLabel {
		t.Errorf("label = %q, want %q", evt.Label, contracts.OrderCreatedLabel)
	}
	if evt.OrderID != 17 || evt.CustomerID != 42 {
		t.Errorf("ids = (%d, %d), want (17, 42)", evt.OrderID, evt.CustomerID)
	}
	if !evt.Amount.Equal(o.TotalAmount) {
		t.Errorf("amount = %s, want %s", evt.Amount, o.TotalAmount)
	}
	if !evt.CreatedAt.Equal(created) {
		t.Errorf("createdAt = %v, want %v", evt.CreatedAt, created)
	}
}
