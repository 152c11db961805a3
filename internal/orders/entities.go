package orders

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/money"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrEmptyAddress      = errors.New("shipping address is required")
	ErrForbidden         = errors.New("not allowed to access this order")
)

// Status representa o estado do pedido
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
)

// ParseStatus normaliza e restringe o status aos três valores conhecidos
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusShipped:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// CanTransition reports whether from -> to is an edge of the state machine.
// There are no exits from shipped and no way back to pending.
func CanTransition(from, to Status) bool {
	switch {
	case from == StatusPending && to == StatusProcessing:
		return true
	case from == StatusProcessing && to == StatusShipped:
		return true
	}
	return false
}

// Order representa um pedido persistido
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         Status          `json:"status"`
	Address        string          `json:"address"`
	Note           string          `json:"note,omitempty"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []Item          `json:"items"`
}

// Item é uma linha imutável do pedido com o preço congelado na criação
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	BookID    string          `json:"book_id"`
	BookTitle string          `json:"book_title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i Item) Subtotal() decimal.Decimal {
	return money.Round(i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// ItemCount is the sum of item quantities.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Filter seleciona pedidos para listagem
type Filter struct {
	UserID string
	Status Status
	Page   int
	Size   int
}

// List é uma página de pedidos, mais recentes primeiro
type List struct {
	Items      []Order `json:"items"`
	Page       int     `json:"page"`
	Size       int     `json:"size"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}
