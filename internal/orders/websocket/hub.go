package websocket

import (
	"context"
	"encoding/json"

	"gomart/internal/orders/order"

	"github.com/shopspring/decimal"
)

// OrderUpdate is pushed to every feed subscriber when an order commits.
type OrderUpdate struct {
	OrderID     int64           `json:"orderId"`
	CustomerID  int64           `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
}

type Client struct {
	hub  *Hub
	conn *Conn
	send chan []byte
}

// Hub fans order-created updates out to all connected feed clients.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan OrderUpdate
	clients    map[*Client]bool

	// done is closed when Run returns. Every send into the hub's
	// channels selects on it, so senders cannot leak once the hub
	// stopped receiving.
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan OrderUpdate),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case upd := <-h.broadcast:
			msg, _ := json.Marshal(upd)
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			return
		}
	}
}

// NotifyOrderCreated satisfies order.Notifier. The handoff runs in its
// own goroutine so the request path never blocks on the hub.
func (h *Hub) NotifyOrderCreated(o *order.Order) {
	upd := OrderUpdate{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
	}
	go h.offer(upd)
}

func (h *Hub) offer(upd OrderUpdate) {
	select {
	case h.broadcast <- upd:
	case <-h.done:
	}
}
