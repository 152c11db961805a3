package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscountPrice(t *testing.T) {
	b := Book{Price: decimal.RequireFromString("19.99"), DiscountPercent: decimal.RequireFromString("25")}
	assert.Equal(t, "14.99", b.DiscountPrice().StringFixed(2))

	b.DiscountPercent = decimal.Zero
	assert.True(t, b.DiscountPrice().Equal(b.Price))
}

// The sale window is informational only: an expired or future window still
// discounts the price while the percent is positive.
func TestDiscountPrice_IgnoresSaleWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(-72 * time.Hour)
	end := now.Add(-24 * time.Hour)
	b := Book{
		Price:           decimal.RequireFromString("20.00"),
		DiscountPercent: decimal.RequireFromString("10"),
		DiscountStart:   &start,
		DiscountEnd:     &end,
	}

	assert.False(t, b.SaleWindowOpen(now))
	assert.Equal(t, "18.00", b.DiscountPrice().StringFixed(2))
}

func TestSaleWindowOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	b := Book{Price: decimal.NewFromInt(10), DiscountPercent: decimal.NewFromInt(5)}

	assert.True(t, b.SaleWindowOpen(now))

	b.DiscountStart = &future
	assert.False(t, b.SaleWindowOpen(now))

	b.DiscountPercent = decimal.Zero
	b.DiscountStart = nil
	assert.False(t, b.SaleWindowOpen(now))
}

func TestCheckStock(t *testing.T) {
	b := Book{ID: "b1", Title: "Dune", Stock: 2}

	assert.NoError(t, b.CheckStock(2))

	err := b.CheckStock(3)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Contains(t, err.Error(), `"Dune"`)
	assert.Contains(t, err.Error(), "only 2 available")
}
