package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/money"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrBookUnavailable   = errors.New("book is no longer available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidBook       = errors.New("invalid book")
)

// InsufficientStockError descreve a falta de estoque de um livro específico
type InsufficientStockError struct {
	BookID    string
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, only %d available", e.Title, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Book representa um livro do catálogo
type Book struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	CategoryID      string          `json:"category_id,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountStart   *time.Time      `json:"discount_start,omitempty"`
	DiscountEnd     *time.Time      `json:"discount_end,omitempty"`
	Deleted         bool            `json:"deleted"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasDiscount reports whether a positive discount percent is configured.
func (b *Book) HasDiscount() bool {
	return b.DiscountPercent.IsPositive()
}

// DiscountPrice retorna o preço de venda. A janela do desconto não é
// consultada: um percentual positivo sempre se aplica.
func (b *Book) DiscountPrice() decimal.Decimal {
	if !b.HasDiscount() {
		return b.Price
	}
	factor := decimal.NewFromInt(1).Sub(b.DiscountPercent.Div(decimal.NewFromInt(100)))
	return money.Round(b.Price.Mul(factor))
}

// SaleWindowOpen reports whether now falls inside [DiscountStart, DiscountEnd].
// Open ends are unbounded. Used for display only.
func (b *Book) SaleWindowOpen(now time.Time) bool {
	if !b.HasDiscount() {
		return false
	}
	if b.DiscountStart != nil && now.Before(*b.DiscountStart) {
		return false
	}
	if b.DiscountEnd != nil && now.After(*b.DiscountEnd) {
		return false
	}
	return true
}

// CheckStock returns an InsufficientStockError when fewer than qty units are on hand.
func (b *Book) CheckStock(qty int) error {
	if b.Stock < qty {
		return &InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock, Requested: qty}
	}
	return nil
}

// StockRange filtra livros por faixa de estoque (limites inclusivos)
type StockRange struct {
	Min *int
	Max *int
}

// BookFilter filtra a listagem de livros
type BookFilter struct {
	Title          string
	IncludeDeleted bool
	Stock          StockRange
}
