package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateBookRequest representa a requisição para cadastrar um livro
type CreateBookRequest struct {
	Title           string          `json:"title" binding:"required"`
	Author          string          `json:"author"`
	CategoryID      string          `json:"category_id"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountStart   *time.Time      `json:"discount_start"`
	DiscountEnd     *time.Time      `json:"discount_end"`
}

// Service contém a lógica de negócio do catálogo
type Service struct {
	repo              Repository
	tracer            trace.Tracer
	lowStockThreshold int
	now               func() time.Time
}

// NewService cria uma nova instância de Service
func NewService(repo Repository, tracer trace.Tracer, lowStockThreshold int) *Service {
	return &Service{
		repo:              repo,
		tracer:            tracer,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

// GetBook returns a book visible in the storefront. Soft-deleted books are
// reported as ErrBookUnavailable.
func (s *Service) GetBook(ctx context.Context, id string) (*Book, error) {
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.Deleted {
		return nil, ErrBookUnavailable
	}
	return book, nil
}

func (s *Service) ListBooks(ctx context.Context, title string) ([]Book, error) {
	return s.repo.ListBooks(ctx, BookFilter{Title: strings.TrimSpace(title)})
}

// CreateBook valida e cadastra um novo livro
func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create_book")
	defer span.End()

	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidBook)
	case req.Price.IsNegative():
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidBook)
	case req.Stock < 0:
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidBook)
	case req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(decimal.NewFromInt(100)):
		return nil, fmt.Errorf("%w: discount percent must be between 0 and 100", ErrInvalidBook)
	case req.DiscountStart != nil && req.DiscountEnd != nil && req.DiscountEnd.Before(*req.DiscountStart):
		return nil, fmt.Errorf("%w: discount window ends before it starts", ErrInvalidBook)
	}

	now := s.now()
	book := &Book{
		ID:              uuid.New().String(),
		Title:           title,
		Author:          strings.TrimSpace(req.Author),
		CategoryID:      req.CategoryID,
		Price:           req.Price,
		Stock:           req.Stock,
		DiscountPercent: req.DiscountPercent,
		DiscountStart:   req.DiscountStart,
		DiscountEnd:     req.DiscountEnd,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("book_id", book.ID))
	slog.InfoContext(ctx, "📚 book created", "book_id", book.ID, "title", book.Title, "stock", book.Stock)
	return book, nil
}

// DeleteBook faz a remoção lógica do livro
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteBook(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "🗑️ book soft-deleted", "book_id", id)
	return nil
}

// LowStock lists non-deleted books with 0 < stock < threshold.
func (s *Service) LowStock(ctx context.Context) ([]Book, error) {
	if s.lowStockThreshold <= 1 {
		return []Book{}, nil
	}
	lo, hi := 1, s.lowStockThreshold-1
	return s.repo.ListBooks(ctx, BookFilter{Stock: StockRange{Min: &lo, Max: &hi}})
}

// OutOfStock lists non-deleted books with no stock left.
func (s *Service) OutOfStock(ctx context.Context) ([]Book, error) {
	zero := 0
	return s.repo.ListBooks(ctx, BookFilter{Stock: StockRange{Min: &zero, Max: &zero}})
}

// LowStockThreshold expõe o limite configurado
func (s *Service) LowStockThreshold() int {
	return s.lowStockThreshold
}

// IsLookupError reports whether err is one of the expected book lookup failures.
func IsLookupError(err error) bool {
	return errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrBookUnavailable)
}
