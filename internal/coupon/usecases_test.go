package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matheusmosca/bookverse/internal/storage"
)

// MockRepository para testes que não precisam de banco real
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetCouponByCode(ctx context.Context, code string) (*Coupon, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(*Coupon)
	return c, args.Error(1)
}

func (m *MockRepository) ConsumeCoupon(ctx context.Context, tx storage.Tx, code string, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, code, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CreateCoupon(ctx context.Context, c *Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) ListCoupons(ctx context.Context) ([]Coupon, error) {
	args := m.Called(ctx)
	coupons, _ := args.Get(0).([]Coupon)
	return coupons, args.Error(1)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEvaluator(c *Coupon) (*Evaluator, *MockRepository) {
	repo := new(MockRepository)
	if c != nil {
		repo.On("GetCouponByCode", mock.Anything, c.Code).Return(c, nil)
	}
	repo.On("GetCouponByCode", mock.Anything, mock.Anything).Return(nil, ErrCouponNotFound)
	return NewEvaluator(repo, func() time.Time { return fixedNow }), repo
}

func percentCoupon(code, value string) *Coupon {
	return &Coupon{Code: code, DiscountType: DiscountPercentage, DiscountValue: d(value), Active: true}
}

func TestEvaluate_EmptyCode(t *testing.T) {
	e, repo := newEvaluator(nil)

	res, err := e.Evaluate(context.Background(), "   ", d("10"))

	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonEmptyCode, res.Reason)
	assert.Equal(t, "Coupon code cannot be empty", res.Message)
	repo.AssertNotCalled(t, "GetCouponByCode", mock.Anything, mock.Anything)
}

func TestEvaluate_UnknownCode(t *testing.T) {
	e, _ := newEvaluator(nil)

	res, err := e.Evaluate(context.Background(), "nope", d("10"))

	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidOrExpired, res.Reason)
}

func TestEvaluate_CodeIsNormalised(t *testing.T) {
	e, _ := newEvaluator(percentCoupon("SAVE10", "10"))

	res, err := e.Evaluate(context.Background(), "  save10 ", d("100.00"))

	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Discount.Equal(d("10.00")))
}

func TestEvaluate_InvalidCoupons(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	limit := 3

	cases := map[string]*Coupon{
		"inactive": {Code: "OFF", DiscountType: DiscountFixedAmount, DiscountValue: d("5"), Active: false},
		"expired":  {Code: "OLD", DiscountType: DiscountFixedAmount, DiscountValue: d("5"), Active: true, ExpiryDate: &past},
		"expires now": {Code: "NOW", DiscountType: DiscountFixedAmount, DiscountValue: d("5"), Active: true,
			ExpiryDate: &fixedNow},
		"usage exhausted": {Code: "USED", DiscountType: DiscountFixedAmount, DiscountValue: d("5"), Active: true,
			UsageLimit: &limit, UsedCount: 3},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			e, _ := newEvaluator(c)

			res, err := e.Evaluate(context.Background(), c.Code, d("100"))

			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, ReasonInvalidOrExpired, res.Reason)
		})
	}
}

func TestEvaluate_MinimumPurchaseBoundary(t *testing.T) {
	c := percentCoupon("MIN50", "10")
	c.MinPurchaseAmount = d("50.00")
	e, _ := newEvaluator(c)

	below, err := e.Evaluate(context.Background(), "MIN50", d("49.99"))
	require.NoError(t, err)
	assert.False(t, below.Valid)
	assert.Equal(t, ReasonMinimumNotMet, below.Reason)
	assert.Equal(t, "Minimum purchase amount of $50.00 is required", below.Message)
	assert.True(t, below.Discount.IsZero())

	at, err := e.Evaluate(context.Background(), "MIN50", d("50.00"))
	require.NoError(t, err)
	assert.True(t, at.Valid)
	assert.True(t, at.Discount.Equal(d("5.00")))
}

func TestEvaluate_PercentageCap(t *testing.T) {
	c := percentCoupon("HALF", "50")
	c.MaxDiscountAmount = decimal.NewNullDecimal(d("10.00"))
	e, _ := newEvaluator(c)

	res, err := e.Evaluate(context.Background(), "HALF", d("100.00"))

	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "10.00", res.Discount.StringFixed(2))
}

func TestEvaluate_FixedAmountCappedAtTotal(t *testing.T) {
	c := &Coupon{Code: "FIX25", DiscountType: DiscountFixedAmount, DiscountValue: d("25"), Active: true}
	e, _ := newEvaluator(c)

	res, err := e.Evaluate(context.Background(), "FIX25", d("19.99"))

	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Discount.Equal(d("19.99")))
}

func TestEvaluate_ZeroDiscountRejected(t *testing.T) {
	e, _ := newEvaluator(percentCoupon("TINY", "0.01"))

	res, err := e.Evaluate(context.Background(), "TINY", d("0.10"))

	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonNotApplicable, res.Reason)
}

func TestEvaluate_RepositoryFailure(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetCouponByCode", mock.Anything, "BOOM").Return(nil, errors.New("connection refused"))
	e := NewEvaluator(repo, func() time.Time { return fixedNow })

	_, err := e.Evaluate(context.Background(), "boom", d("10"))

	assert.Error(t, err)
}

func TestConsume(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ConsumeCoupon", mock.Anything, nil, "SAVE10", fixedNow).Return(true, nil).Once()
	repo.On("ConsumeCoupon", mock.Anything, nil, "SAVE10", fixedNow).Return(false, nil).Once()
	e := NewEvaluator(repo, func() time.Time { return fixedNow })

	assert.NoError(t, e.Consume(context.Background(), nil, "save10"))
	assert.ErrorIs(t, e.Consume(context.Background(), nil, "save10"), ErrCouponUnavailable)
	repo.AssertExpectations(t)
}

func TestServiceCreate_Validation(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{Code: "X", DiscountType: "bogus", DiscountValue: d("5")})
	assert.ErrorIs(t, err, ErrInvalidCoupon)

	_, err = svc.Create(context.Background(), CreateRequest{Code: "X", DiscountType: "percentage", DiscountValue: d("150")})
	assert.ErrorIs(t, err, ErrInvalidCoupon)

	_, err = svc.Create(context.Background(), CreateRequest{
		Code: "X", DiscountType: "FIXED_AMOUNT", DiscountValue: d("5"),
		MaxDiscountAmount: decimal.NewNullDecimal(d("2")),
	})
	assert.ErrorIs(t, err, ErrInvalidCoupon)

	repo.AssertNotCalled(t, "CreateCoupon", mock.Anything, mock.Anything)
}

func TestServiceCreate_NormalisesCode(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreateCoupon", mock.Anything, mock.MatchedBy(func(c *Coupon) bool {
		return c.Code == "WELCOME20" && c.DiscountType == DiscountPercentage && c.Active
	})).Return(nil)
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), CreateRequest{Code: " welcome20 ", DiscountType: "percentage", DiscountValue: d("20")})

	require.NoError(t, err)
	assert.Equal(t, "WELCOME20", c.Code)
	repo.AssertExpectations(t)
}

func TestCalculateDiscount_BelowMinimumIsZero(t *testing.T) {
	c := percentCoupon("A", "10")
	c.MinPurchaseAmount = d("20")

	assert.True(t, c.CalculateDiscount(d("19.99")).IsZero())
	assert.True(t, c.CalculateDiscount(d("0")).IsZero())
	assert.True(t, c.CalculateDiscount(d("20")).Equal(d("2.00")))
}
