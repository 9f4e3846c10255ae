package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gomart/internal/orders/monitoring"
	"gomart/internal/orders/order"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

type stubOrderService struct {
	createFn func(ctx context.Context, customerID int64, items []order.ItemRequest) (*order.Order, error)
	listFn   func(ctx context.Context) ([]order.Order, error)
	getFn    func(ctx context.Context, id int64) (*order.Order, error)
	searchFn func(ctx context.Context, filter order.SearchFilter) ([]order.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, customerID int64, items []order.ItemRequest) (*order.Order, error) {
	return s.createFn(ctx, customerID, items)
}

func (s *stubOrderService) List(ctx context.Context) ([]order.Order, error) {
	return s.listFn(ctx)
}

func (s *stubOrderService) Get(ctx context.Context, id int64) (*order.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderService) Search(ctx context.Context, filter order.SearchFilter) ([]order.Order, error) {
	return s.searchFn(ctx, filter)
}

func newTestServer(svc OrderService) *Server {
	return NewServer(svc, slog.New(slog.DiscardHandler))
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestCreateOrderReturnsPersistedOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubOrderService{
		createFn: func(_ context.Context, customerID int64, items []order.ItemRequest) (*order.Order, error) {
			if customerID != 42 {
				t.Errorf("customerID = %d, want 42", customerID)
			}
			if len(items) != 2 {
				t.Errorf("items = %d, want 2", len(items))
			}
			return &order.Order{
				ID:          7,
				CustomerID:  customerID,
				TotalAmount: decimal.RequireFromString("0.90"),
				Status:      order.StatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
				Items: []order.Item{
					{ID: 1, ProductID: 10, Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")},
					{ID: 2, ProductID: 20, Quantity: 6, UnitPrice: decimal.RequireFromString("0.10")},
				},
			}, nil
		},
	}

	body := `{"customerId":42,"items":[
		{"productId":10,"quantity":3,"unitPrice":0.10},
		{"productId":20,"quantity":6,"unitPrice":0.10}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}

	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got["id"].(float64) != 7 {
		t.Errorf("id = %v, want 7", got["id"])
	}
	if got["status"].(string) != "PENDING" {
		t.Errorf("status = %v, want PENDING", got["status"])
	}
	if got["totalAmount"].(float64) != 0.9 {
		t.Errorf("totalAmount = %v, want 0.9", got["totalAmount"])
	}
	if items := got["items"].([]any); len(items) != 2 {
		t.Errorf("items = %v, want 2 entries", items)
	}
}

func TestCreateOrderValidationFailure(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(context.Context, int64, []order.ItemRequest) (*order.Order, error) {
			t.Fatal("service must not be called on validation failure")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.StatusCode != http.StatusBadRequest {
		t.Errorf("statusCode = %d, want 400", body.StatusCode)
	}
	if body.Path != "/orders" {
		t.Errorf("path = %q, want /orders", body.Path)
	}
	if !strings.Contains(body.Message, "Validation failed:") {
		t.Errorf("message = %q, want aggregated validation message", body.Message)
	}
}

func TestCreateOrderRejectsMalformedJSON(t *testing.T) {
	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateOrderInternalErrorIsGeneric(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(context.Context, int64, []order.ItemRequest) (*order.Order, error) {
			return nil, errors.New("pq: connection refused")
		},
	}

	body := `{"customerId":1,"items":[{"productId":1,"quantity":1,"unitPrice":1.00}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if strings.Contains(resp.Message, "connection refused") {
		t.Errorf("message %q leaks internal detail", resp.Message)
	}
}

func TestListOrdersEmptyIsJSONArray(t *testing.T) {
	svc := &stubOrderService{
		listFn: func(context.Context) ([]order.Order, error) {
			return []order.Order{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, id int64) (*order.Order, error) {
			return nil, order.ErrOrderNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders/99", nil)
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.StatusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", body.StatusCode)
	}
	if !strings.Contains(body.Message, "99") {
		t.Errorf("message = %q, want the missing id", body.Message)
	}
	if body.Path != "/orders/99" {
		t.Errorf("path = %q, want /orders/99", body.Path)
	}
}

func TestGetOrderRejectsNonNumericID(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, id int64) (*order.Order, error) {
			t.Fatal("service must not be called for a bad id")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchOrdersPassesFilterThrough(t *testing.T) {
	var captured order.SearchFilter
	svc := &stubOrderService{
		searchFn: func(_ context.Context, filter order.SearchFilter) ([]order.Order, error) {
			captured = filter
			return []order.Order{}, nil
		},
	}

	body := `{"status":"PENDING","createdAt":"2026-02-10T12:30:00Z","fromDate":"2026-02-01","toDate":"2026-02-28"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}
	if captured.Status == nil || *captured.Status != order.StatusPending {
		t.Errorf("status = %v, want PENDING", captured.Status)
	}
	if captured.FromDate == nil || !captured.FromDate.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("fromDate = %v", captured.FromDate)
	}
	if captured.ToDate == nil || !captured.ToDate.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("toDate = %v", captured.ToDate)
	}
	if captured.CreatedAt == nil {
		t.Error("createdAt must be carried through even though it is not filtered on")
	}
}

func TestSearchOrdersEmptyBodyMatchesAll(t *testing.T) {
	svc := &stubOrderService{
		searchFn: func(_ context.Context, filter order.SearchFilter) ([]order.Order, error) {
			if filter.Status != nil || filter.FromDate != nil || filter.ToDate != nil || filter.CreatedAt != nil {
				t.Errorf("filter = %+v, want empty", filter)
			}
			return []order.Order{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/search", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSearchOrdersRejectsBadDate(t *testing.T) {
	svc := &stubOrderService{
		searchFn: func(context.Context, order.SearchFilter) ([]order.Order, error) {
			t.Fatal("service must not be called for a bad date")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/search", strings.NewReader(`{"fromDate":"01-02-2026"}`))
	rec := httptest.NewRecorder()
	newTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRequestCounterUsesRoutePattern(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(context.Context, int64) (*order.Order, error) {
			return nil, order.ErrOrderNotFound
		},
	}
	srv := newTestServer(svc)

	// All ids must land on the one pattern series; counting raw paths
	// would grow the metric without bound.
	series := monitoring.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /orders/{id}", "404")
	before := testutil.ToFloat64(series)

	for _, path := range []string{"/orders/101", "/orders/102", "/orders/103"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(series) - before; got != 3 {
		t.Errorf("pattern series grew by %v, want 3", got)
	}
}
