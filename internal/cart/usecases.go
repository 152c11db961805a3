package cart

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
	"github.com/matheusmosca/bookverse/internal/money"
)

// BookFinder returns a storefront-visible book.
type BookFinder interface {
	GetBook(ctx context.Context, id string) (*catalog.Book, error)
}

// CouponEvaluator prices a coupon code against a cart total.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code string, total decimal.Decimal) (coupon.Result, error)
}

// Service contém a lógica de negócio do carrinho
type Service struct {
	books   BookFinder
	coupons CouponEvaluator
}

// NewService cria uma nova instância de Service
func NewService(books BookFinder, coupons CouponEvaluator) *Service {
	return &Service{books: books, coupons: coupons}
}

// AddToCart soma qty à linha existente ou cria uma nova. A quantidade final
// precisa caber no estoque atual do livro.
func (s *Service) AddToCart(ctx context.Context, c *Cart, bookID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	want := c.Quantity(bookID) + qty
	if err := book.CheckStock(want); err != nil {
		return err
	}

	c.set(*book, want)
	slog.DebugContext(ctx, "cart line added", "book_id", bookID, "quantity", want)
	return nil
}

// UpdateItem sobrescreve a quantidade de uma linha; qty <= 0 remove a linha
func (s *Service) UpdateItem(ctx context.Context, c *Cart, bookID string, qty int) error {
	if qty <= 0 {
		c.Remove(bookID)
		return nil
	}
	if c.Quantity(bookID) == 0 {
		return ErrItemNotInCart
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	if err := book.CheckStock(qty); err != nil {
		return err
	}

	c.set(*book, qty)
	return nil
}

// ApplyCoupon avalia o código contra o total atual do carrinho. O chamador
// só guarda o código normalizado quando o resultado é válido.
func (s *Service) ApplyCoupon(ctx context.Context, c *Cart, code string) (coupon.Result, error) {
	return s.coupons.Evaluate(ctx, code, c.Total())
}

// Totals prices the cart. A stored coupon that no longer evaluates simply
// contributes no discount.
func (s *Service) Totals(ctx context.Context, c *Cart, couponCode string) (Totals, error) {
	total := c.Total()
	original := c.OriginalTotal()

	t := Totals{
		Total:            total,
		OriginalTotal:    original,
		Savings:          original.Sub(total),
		CouponDiscount:   decimal.Zero,
		TotalAfterCoupon: total,
		ItemCount:        c.ItemCount(),
		Size:             len(c.Items),
	}

	if couponCode == "" {
		return t, nil
	}

	res, err := s.coupons.Evaluate(ctx, couponCode, total)
	if err != nil {
		return Totals{}, err
	}
	if res.Valid {
		t.CouponCode = res.Coupon.Code
		t.CouponDiscount = res.Discount
		t.TotalAfterCoupon = money.Max0(money.Round(total.Sub(res.Discount)))
	}
	return t, nil
}
