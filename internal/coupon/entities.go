package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/money"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponUnavailable = errors.New("coupon no longer available")
	ErrDuplicateCode     = errors.New("coupon code already exists")
	ErrInvalidCoupon     = errors.New("invalid coupon")
)

// DiscountType define como o desconto é calculado
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// ParseDiscountType accepts either spelling case-insensitively.
func ParseDiscountType(s string) (DiscountType, bool) {
	switch t := DiscountType(strings.ToUpper(strings.TrimSpace(s))); t {
	case DiscountPercentage, DiscountFixedAmount:
		return t, true
	}
	return "", false
}

// Coupon representa um cupom de desconto
type Coupon struct {
	ID                string              `json:"id"`
	Code              string              `json:"code"`
	DiscountType      DiscountType        `json:"discount_type"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal     `json:"min_purchase_amount"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`
	ExpiryDate        *time.Time          `json:"expiry_date,omitempty"`
	UsageLimit        *int                `json:"usage_limit,omitempty"`
	UsedCount         int                 `json:"used_count"`
	Active            bool                `json:"active"`
	Description       string              `json:"description"`
	CreatedAt         time.Time           `json:"created_at"`
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExpired reports whether the expiry instant is at or before now.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiryDate != nil && !now.Before(*c.ExpiryDate)
}

func (c *Coupon) IsUsageLimitReached() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// IsValid = active, not expired and under the usage limit
func (c *Coupon) IsValid(now time.Time) bool {
	return c.Active && !c.IsExpired(now) && !c.IsUsageLimitReached()
}

// CalculateDiscount calcula o desconto sobre o total do carrinho. Retorna zero
// quando o total não é positivo ou fica abaixo da compra mínima.
func (c *Coupon) CalculateDiscount(total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() || total.LessThan(c.MinPurchaseAmount) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = total.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscountAmount.Valid && discount.GreaterThan(c.MaxDiscountAmount.Decimal) {
			discount = c.MaxDiscountAmount.Decimal
		}
	case DiscountFixedAmount:
		discount = decimal.Min(c.DiscountValue, total)
	}

	return money.Round(discount)
}
