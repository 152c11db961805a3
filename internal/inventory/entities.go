package inventory

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidStock        = errors.New("new stock must not be negative")
	ErrTransactionNotFound = errors.New("inventory transaction not found")
	ErrInvalidFilter       = errors.New("invalid history filter")
)

// TransactionType classifica a movimentação de estoque
type TransactionType string

const (
	TypeImport     TransactionType = "IMPORT"
	TypeExport     TransactionType = "EXPORT"
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

// ParseTransactionType accepts any casing; empty input means "any type".
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case "", TypeImport, TypeExport, TypeAdjustment:
		return t, nil
	}
	return "", ErrInvalidFilter
}

// ReferenceType liga a movimentação à sua origem
type ReferenceType string

const (
	RefManual ReferenceType = "MANUAL"
	RefOrder  ReferenceType = "ORDER"
)

// Transaction é um registro imutável do ledger. StockAfter always equals
// StockBefore + Quantity.
type Transaction struct {
	ID            string          `json:"id"`
	BookID        string          `json:"book_id"`
	BookTitle     string          `json:"book_title,omitempty"`
	Type          TransactionType `json:"type"`
	Quantity      int             `json:"quantity"`
	StockBefore   int             `json:"stock_before"`
	StockAfter    int             `json:"stock_after"`
	Reason        string          `json:"reason"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockRequest representa uma entrada ou saída manual de estoque
type StockRequest struct {
	BookID   string `json:"book_id" binding:"required"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
	Note     string `json:"note"`
	Actor    string `json:"-"`
}

// AdjustRequest define o novo estoque absoluto de um livro
type AdjustRequest struct {
	BookID   string `json:"book_id" binding:"required"`
	NewStock int    `json:"new_stock"`
	Reason   string `json:"reason"`
	Note     string `json:"note"`
	Actor    string `json:"-"`
}

// HistoryFilter combina os filtros do histórico. From e To são inclusivos.
type HistoryFilter struct {
	BookID string
	Type   TransactionType
	From   *time.Time
	To     *time.Time
	Page   int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (f HistoryFilter) normalized() HistoryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	return f
}

// Page é uma página do histórico, ordenada da mais recente para a mais antiga
type Page struct {
	Items      []Transaction `json:"items"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}
