// Package notification entrega eventos de pedidos às sessões de administradores.
package notification

import (
	"errors"
	"time"
)

// Capacity is the size of every ring buffer.
const Capacity = 50

var ErrNotificationNotFound = errors.New("notification not found")

// Type identifica a origem da notificação
type Type string

const (
	TypeOrder   Type = "order"
	TypePayment Type = "payment"
)

// Notification é um evento exibido aos administradores
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ring keeps the newest Capacity entries, oldest evicted first.
type ring struct {
	items []Notification
}

func (r *ring) push(n Notification) {
	if len(r.items) == Capacity {
		copy(r.items, r.items[1:])
		r.items = r.items[:Capacity-1]
	}
	r.items = append(r.items, n)
}

// newestFirst returns a copy ordered from the newest entry to the oldest.
func (r *ring) newestFirst() []Notification {
	out := make([]Notification, len(r.items))
	for i, n := range r.items {
		out[len(r.items)-1-i] = n
	}
	return out
}

func (r *ring) find(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}
