package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/money"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrItemNotInCart   = errors.New("book is not in the cart")
)

// Item é uma linha do carrinho: snapshot do livro e quantidade
type Item struct {
	Book     catalog.Book `json:"book"`
	Quantity int          `json:"quantity"`
}

// Subtotal is the discounted line amount, rounded per line.
func (i Item) Subtotal() decimal.Decimal {
	return money.Round(i.Book.DiscountPrice().Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// OriginalSubtotal uses the undiscounted price.
func (i Item) OriginalSubtotal() decimal.Decimal {
	return money.Round(i.Book.Price.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// Cart é o carrinho da sessão. Nunca é persistido no banco.
type Cart struct {
	Items []Item `json:"items"`
}

func (c *Cart) index(bookID string) int {
	for i := range c.Items {
		if c.Items[i].Book.ID == bookID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for bookID, zero when absent.
func (c *Cart) Quantity(bookID string) int {
	if i := c.index(bookID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

func (c *Cart) set(book catalog.Book, qty int) {
	if i := c.index(book.ID); i >= 0 {
		c.Items[i] = Item{Book: book, Quantity: qty}
		return
	}
	c.Items = append(c.Items, Item{Book: book, Quantity: qty})
}

// Remove drops the line for bookID if present.
func (c *Cart) Remove(bookID string) {
	if i := c.index(bookID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Total soma os subtotais já arredondados de cada linha
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) OriginalTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.OriginalSubtotal())
	}
	return total
}

// Totals is the priced view of a cart with the coupon overlay applied.
type Totals struct {
	Total            decimal.Decimal `json:"total"`
	OriginalTotal    decimal.Decimal `json:"original_total"`
	Savings          decimal.Decimal `json:"savings"`
	CouponCode       string          `json:"coupon_code,omitempty"`
	CouponDiscount   decimal.Decimal `json:"coupon_discount"`
	TotalAfterCoupon decimal.Decimal `json:"total_after_coupon"`
	ItemCount        int             `json:"item_count"`
	Size             int             `json:"size"`
}
