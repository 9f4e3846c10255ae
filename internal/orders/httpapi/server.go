package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"gomart/internal/orders/monitoring"
	"gomart/internal/orders/order"
)

// OrderService is the slice of the order domain the REST surface needs.
type OrderService interface {
	Create(ctx context.Context, customerID int64, items []order.ItemRequest) (*order.Order, error)
	List(ctx context.Context) ([]order.Order, error)
	Get(ctx context.Context, id int64) (*order.Order, error)
	Search(ctx context.Context, filter order.SearchFilter) ([]order.Order, error)
}

type Server struct {
	orders OrderService
	logger *slog.Logger
	mux    *http.ServeMux
}

func NewServer(orders OrderService, logger *slog.Logger) *Server {
	s := &Server{
		orders: orders,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /orders", s.createOrder)
	s.mux.HandleFunc("GET /orders", s.listOrders)
	s.mux.HandleFunc("GET /orders/{id}", s.getOrder)
	s.mux.HandleFunc("POST /orders/search", s.searchOrders)
}

// Handle registers an extra route on the server's mux.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// HandleFunc registers an extra route on the server's mux.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	// Label with the matched route pattern, not the raw path: paths
	// carry order ids and would mint a new series per request.
	pattern := r.Pattern
	if pattern == "" {
		pattern = "unmatched"
	}
	monitoring.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := req.validate(); err != nil {
		s.logger.Warn("order validation failed", "err", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := s.orders.Create(r.Context(), *req.CustomerID, req.toItemRequests())
	if err != nil {
		s.internalError(w, r, "create order", err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := s.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeError(w, r, http.StatusNotFound, fmt.Sprintf("Order not found with id: %d", id))
			return
		}
		s.internalError(w, r, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (s *Server) searchOrders(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	filter, err := req.toFilter()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := s.orders.Search(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, "search orders", err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// internalError logs full detail server-side and returns a generic,
// non-leaking message to the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op, "path", r.URL.Path, "err", err)
	writeError(w, r, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
}

type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Message:    msg,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
	})
}
