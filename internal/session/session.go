// Package session guarda o estado efêmero por sessão: identidade, carrinho e cupom selecionado.
//
// A sessão guarda apenas o id do usuário. O usuário é relido do repositório
// a cada requisição.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matheusmosca/bookverse/internal/cart"
)

var ErrSessionNotFound = errors.New("session not found")

// Session é o registro serializável de uma sessão
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Cart       cart.Cart `json:"cart"`
	CouponCode string    `json:"coupon_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// New cria uma sessão anônima
func New() *Session {
	now := time.Now()
	return &Session{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
}

func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

// ClearCheckout drops the cart and the coupon selection after a placed order.
func (s *Session) ClearCheckout() {
	s.Cart.Clear()
	s.CouponCode = ""
}

// Store persiste sessões
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
