package httpapi

import (
	"fmt"
	"strings"
	"time"

	"gomart/internal/orders/order"

	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	ProductID *int64           `json:"productId"`
	Quantity  *int             `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type orderRequest struct {
	CustomerID *int64             `json:"customerId"`
	Items      []orderItemRequest `json:"items"`
}

var minUnitPrice = decimal.New(1, -2) // 0.01

// validationError aggregates every failing field into one message so a
// single response reports all problems at once.
type validationError struct {
	message string
}

func (e *validationError) Error() string { return e.message }

func (r orderRequest) validate() error {
	var fails []string
	add := func(field, reason string) {
		fails = append(fails, field+" - "+reason)
	}

	switch {
	case r.CustomerID == nil:
		add("customerId", "Customer ID is required")
	case *r.CustomerID <= 0:
		add("customerId", "Customer ID must be positive")
	}

	if len(r.Items) == 0 {
		add("items", "Order items cannot be empty")
	}
	for i, item := range r.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		switch {
		case item.ProductID == nil:
			add(prefix+"productId", "Product ID is required")
		case *item.ProductID <= 0:
			add(prefix+"productId", "Product ID must be positive")
		}
		switch {
		case item.Quantity == nil:
			add(prefix+"quantity", "Quantity is required")
		case *item.Quantity < 1:
			add(prefix+"quantity", "Quantity must be at least 1")
		}
		switch {
		case item.UnitPrice == nil:
			add(prefix+"unitPrice", "Unit price is required")
		case item.UnitPrice.Cmp(minUnitPrice) < 0:
			add(prefix+"unitPrice", "Unit price must be at least 0.01")
		}
	}

	if len(fails) == 0 {
		return nil
	}
	return &validationError{message: "Validation failed: " + strings.Join(fails, "; ")}
}

// toItemRequests assumes validate has passed; all pointers are set.
func (r orderRequest) toItemRequests() []order.ItemRequest {
	items := make([]order.ItemRequest, len(r.Items))
	for i, item := range r.Items {
		items[i] = order.ItemRequest{
			ProductID: *item.ProductID,
			Quantity:  *item.Quantity,
			UnitPrice: *item.UnitPrice,
		}
	}
	return items
}

// searchRequest mirrors the search body. Dates are calendar days
// (YYYY-MM-DD); createdAt is an exact instant kept on the wire for
// compatibility even though no filter acts on it.
type searchRequest struct {
	Status    *string    `json:"status"`
	CreatedAt *time.Time `json:"createdAt"`
	FromDate  *string    `json:"fromDate"`
	ToDate    *string    `json:"toDate"`
}

const dateLayout = "2006-01-02"

func (r searchRequest) toFilter() (order.SearchFilter, error) {
	var f order.SearchFilter

	if r.Status != nil {
		st := order.Status(*r.Status)
		f.Status = &st
	}
	f.CreatedAt = r.CreatedAt

	if r.FromDate != nil {
		t, err := time.ParseInLocation(dateLayout, *r.FromDate, time.UTC)
		if err != nil {
			return f, fmt.Errorf("invalid fromDate: %q is not a valid date", *r.FromDate)
		}
		f.FromDate = &t
	}
	if r.ToDate != nil {
		t, err := time.ParseInLocation(dateLayout, *r.ToDate, time.UTC)
		if err != nil {
			return f, fmt.Errorf("invalid toDate: %q is not a valid date", *r.ToDate)
		}
		f.ToDate = &t
	}

	return f, nil
}
