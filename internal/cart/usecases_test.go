package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
)

type MockBookFinder struct {
	mock.Mock
}

func (m *MockBookFinder) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*catalog.Book)
	return b, args.Error(1)
}

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, code string, total decimal.Decimal) (coupon.Result, error) {
	args := m.Called(ctx, code, total)
	return args.Get(0).(coupon.Result), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func book(id, price string, stock int) *catalog.Book {
	return &catalog.Book{ID: id, Title: "Book " + id, Price: d(price), Stock: stock}
}

func TestAddToCart_MergesLines(t *testing.T) {
	books := new(MockBookFinder)
	books.On("GetBook", mock.Anything, "a").Return(book("a", "20.00", 5), nil)
	svc := NewService(books, new(MockEvaluator))
	var c Cart

	require.NoError(t, svc.AddToCart(context.Background(), &c, "a", 2))
	require.NoError(t, svc.AddToCart(context.Background(), &c, "a", 3))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddToCart_MergedQuantityExceedsStock(t *testing.T) {
	books := new(MockBookFinder)
	books.On("GetBook", mock.Anything, "a").Return(book("a", "20.00", 5), nil)
	svc := NewService(books, new(MockEvaluator))
	var c Cart
	require.NoError(t, svc.AddToCart(context.Background(), &c, "a", 4))

	err := svc.AddToCart(context.Background(), &c, "a", 2)

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, "Book a", stockErr.Title)
	assert.Equal(t, 4, c.Quantity("a"))
}

func TestAddToCart_Rejections(t *testing.T) {
	books := new(MockBookFinder)
	books.On("GetBook", mock.Anything, "gone").Return(nil, catalog.ErrBookUnavailable)
	books.On("GetBook", mock.Anything, "missing").Return(nil, catalog.ErrBookNotFound)
	svc := NewService(books, new(MockEvaluator))
	var c Cart

	assert.ErrorIs(t, svc.AddToCart(context.Background(), &c, "a", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.AddToCart(context.Background(), &c, "gone", 1), catalog.ErrBookUnavailable)
	assert.ErrorIs(t, svc.AddToCart(context.Background(), &c, "missing", 1), catalog.ErrBookNotFound)
	assert.True(t, c.IsEmpty())
}

func TestUpdateItem(t *testing.T) {
	books := new(MockBookFinder)
	books.On("GetBook", mock.Anything, "a").Return(book("a", "20.00", 5), nil)
	svc := NewService(books, new(MockEvaluator))
	var c Cart
	require.NoError(t, svc.AddToCart(context.Background(), &c, "a", 1))

	require.NoError(t, svc.UpdateItem(context.Background(), &c, "a", 4))
	assert.Equal(t, 4, c.Quantity("a"))

	assert.ErrorIs(t, svc.UpdateItem(context.Background(), &c, "a", 6), catalog.ErrInsufficientStock)
	assert.Equal(t, 4, c.Quantity("a"))

	assert.ErrorIs(t, svc.UpdateItem(context.Background(), &c, "b", 1), ErrItemNotInCart)

	require.NoError(t, svc.UpdateItem(context.Background(), &c, "a", 0))
	assert.True(t, c.IsEmpty())
}

func TestTotals_LineLevelRounding(t *testing.T) {
	b := book("a", "9.99", 10)
	b.DiscountPercent = d("15")
	c := Cart{Items: []Item{{Book: *b, Quantity: 3}, {Book: *book("b", "0.335", 10), Quantity: 1}}}
	svc := NewService(new(MockBookFinder), new(MockEvaluator))

	totals, err := svc.Totals(context.Background(), &c, "")

	require.NoError(t, err)
	// 9.99 at 15% off is 8.49; round(8.49*3) = 25.47 plus round(0.335) = 0.34
	assert.Equal(t, "25.81", totals.Total.StringFixed(2))
	assert.Equal(t, "30.31", totals.OriginalTotal.StringFixed(2))
	assert.Equal(t, "4.50", totals.Savings.StringFixed(2))
	assert.Equal(t, 4, totals.ItemCount)
	assert.Equal(t, 2, totals.Size)
	assert.True(t, totals.TotalAfterCoupon.Equal(totals.Total))
}

func TestTotals_CouponOverlay(t *testing.T) {
	c := Cart{Items: []Item{{Book: *book("a", "20.00", 5), Quantity: 2}}}
	coupons := new(MockEvaluator)
	coupons.On("Evaluate", mock.Anything, "SAVE5", mock.Anything).
		Return(coupon.Result{Valid: true, Coupon: &coupon.Coupon{Code: "SAVE5"}, Discount: d("5.00")}, nil)
	coupons.On("Evaluate", mock.Anything, "STALE", mock.Anything).
		Return(coupon.Result{Reason: coupon.ReasonInvalidOrExpired}, nil)
	svc := NewService(new(MockBookFinder), coupons)

	withCoupon, err := svc.Totals(context.Background(), &c, "SAVE5")
	require.NoError(t, err)
	assert.Equal(t, "35.00", withCoupon.TotalAfterCoupon.StringFixed(2))
	assert.Equal(t, "SAVE5", withCoupon.CouponCode)

	stale, err := svc.Totals(context.Background(), &c, "STALE")
	require.NoError(t, err)
	assert.True(t, stale.CouponDiscount.IsZero())
	assert.Equal(t, "40.00", stale.TotalAfterCoupon.StringFixed(2))
	assert.Empty(t, stale.CouponCode)
}

func TestTotals_CouponEvaluatedAgainstDiscountedTotal(t *testing.T) {
	b := book("a", "100.00", 5)
	b.DiscountPercent = d("10")
	c := Cart{Items: []Item{{Book: *b, Quantity: 1}}}
	coupons := new(MockEvaluator)
	coupons.On("Evaluate", mock.Anything, "X", mock.MatchedBy(func(total decimal.Decimal) bool {
		return total.Equal(d("90.00"))
	})).Return(coupon.Result{Valid: true, Coupon: &coupon.Coupon{Code: "X"}, Discount: d("90.00")}, nil)
	svc := NewService(new(MockBookFinder), coupons)

	totals, err := svc.Totals(context.Background(), &c, "X")

	require.NoError(t, err)
	assert.True(t, totals.TotalAfterCoupon.IsZero())
	coupons.AssertExpectations(t)
}

func TestCartRemoveAndClear(t *testing.T) {
	c := Cart{Items: []Item{{Book: *book("a", "1", 1), Quantity: 1}, {Book: *book("b", "1", 1), Quantity: 1}}}

	c.Remove("a")
	c.Remove("zzz")
	assert.Equal(t, 0, c.Quantity("a"))
	assert.Equal(t, 1, c.Quantity("b"))

	c.Clear()
	assert.True(t, c.IsEmpty())
}
