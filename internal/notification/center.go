package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/users"
)

var _ orders.Notifier = (*Center)(nil)

// UserLookup resolve o nome exibido nas mensagens
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*users.User, error)
}

// Forwarder publica notificações fora do processo.
type Forwarder interface {
	Forward(ctx context.Context, n Notification)
}

// Center distribui eventos de pedidos para as caixas das sessões de admin.
// A entrega nunca bloqueia nem falha para quem publica.
type Center struct {
	mu        sync.Mutex
	recent    ring
	inboxes   map[string]*Inbox
	lastSeen  map[string]time.Time
	idle      time.Duration
	users     UserLookup
	forwarder Forwarder
	now       func() time.Time
}

// NewCenter cria uma nova instância de Center. forwarder may be nil.
func NewCenter(lookup UserLookup, forwarder Forwarder) *Center {
	return &Center{
		inboxes:   make(map[string]*Inbox),
		lastSeen:  make(map[string]time.Time),
		users:     lookup,
		forwarder: forwarder,
		now:       time.Now,
	}
}

// WithIdleTimeout descarta caixas sem acesso há mais de idle, normalmente o
// TTL da sessão. Com zero as caixas ficam até o Drop.
func (c *Center) WithIdleTimeout(idle time.Duration) *Center {
	c.idle = idle
	return c
}

// WithClock overrides the center's time source.
func (c *Center) WithClock(now func() time.Time) *Center {
	c.now = now
	return c
}

func (c *Center) NotifyNewOrder(ctx context.Context, o orders.Order) {
	c.publish(ctx, TypeOrder, o, fmt.Sprintf("User %s has placed a new order #%s", c.displayName(ctx, o.UserID), o.ID))
}

func (c *Center) NotifyPaymentRequest(ctx context.Context, o orders.Order) {
	c.publish(ctx, TypePayment, o, fmt.Sprintf("User %s has paid for order #%s", c.displayName(ctx, o.UserID), o.ID))
}

func (c *Center) displayName(ctx context.Context, userID string) string {
	if c.users == nil {
		return userID
	}
	u, err := c.users.GetUser(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "⚠️ could not resolve user for notification", "user_id", userID, "error", err)
		return userID
	}
	return u.Username
}

func (c *Center) publish(ctx context.Context, typ Type, o orders.Order, msg string) {
	n := Notification{
		ID:        uuid.New().String(),
		Type:      typ,
		Message:   msg,
		OrderID:   o.ID,
		UserID:    o.UserID,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	c.recent.push(n)
	c.pruneLocked(n.CreatedAt)
	targets := make([]*Inbox, 0, len(c.inboxes))
	for _, in := range c.inboxes {
		targets = append(targets, in)
	}
	c.mu.Unlock()

	for _, in := range targets {
		in.push(n)
	}
	slog.InfoContext(ctx, "🔔 notification published", "type", typ, "order_id", o.ID, "inboxes", len(targets))

	if c.forwarder != nil {
		c.forwarder.Forward(ctx, n)
	}
}

// Register returns the inbox of sessionID, creating it from the recent
// notifications on first use.
func (c *Center) Register(sessionID string) *Inbox {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)
	c.lastSeen[sessionID] = now
	if in, ok := c.inboxes[sessionID]; ok {
		return in
	}
	in := newInbox(c.recent.items)
	c.inboxes[sessionID] = in
	return in
}

// pruneLocked remove caixas cuja sessão expirou sem logout
func (c *Center) pruneLocked(now time.Time) {
	if c.idle <= 0 {
		return
	}
	for id, seen := range c.lastSeen {
		if now.Sub(seen) > c.idle {
			delete(c.inboxes, id)
			delete(c.lastSeen, id)
		}
	}
}

// Inboxes returns how many session inboxes are live.
func (c *Center) Inboxes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inboxes)
}

// Drop descarta a caixa da sessão encerrada
func (c *Center) Drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inboxes, sessionID)
	delete(c.lastSeen, sessionID)
}
