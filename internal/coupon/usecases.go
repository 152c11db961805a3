package coupon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/storage"
)

// Reason identifica o motivo da rejeição de um cupom
type Reason string

const (
	ReasonEmptyCode        Reason = "empty code"
	ReasonInvalidOrExpired Reason = "invalid or expired"
	ReasonMinimumNotMet    Reason = "minimum not met"
	ReasonNotApplicable    Reason = "cannot be applied"
)

// Result é o resultado da avaliação de um cupom
type Result struct {
	Valid    bool            `json:"valid"`
	Reason   Reason          `json:"reason,omitempty"`
	Message  string          `json:"message"`
	Coupon   *Coupon         `json:"coupon,omitempty"`
	Discount decimal.Decimal `json:"discount"`
}

func reject(reason Reason, msg string) Result {
	return Result{Reason: reason, Message: msg, Discount: decimal.Zero}
}

// Evaluator valida cupons contra o horário atual e um valor de compra
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator cria uma nova instância de Evaluator
func NewEvaluator(repo Repository, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{repo: repo, now: now}
}

// Evaluate checks code against total, short-circuiting on the first failed
// rule. Rejections are returned as Result values; only repository failures
// are errors.
func (e *Evaluator) Evaluate(ctx context.Context, code string, total decimal.Decimal) (Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return reject(ReasonEmptyCode, "Coupon code cannot be empty"), nil
	}

	c, err := e.repo.GetCouponByCode(ctx, code)
	if errors.Is(err, ErrCouponNotFound) {
		return reject(ReasonInvalidOrExpired, "Invalid or expired coupon code"), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to load coupon: %w", err)
	}
	if !c.IsValid(e.now()) {
		return reject(ReasonInvalidOrExpired, "Invalid or expired coupon code"), nil
	}

	if total.LessThan(c.MinPurchaseAmount) {
		return reject(ReasonMinimumNotMet,
			fmt.Sprintf("Minimum purchase amount of $%s is required", c.MinPurchaseAmount.StringFixed(2))), nil
	}

	discount := c.CalculateDiscount(total)
	if !discount.IsPositive() {
		return reject(ReasonNotApplicable, "Coupon cannot be applied to this cart"), nil
	}

	return Result{
		Valid:    true,
		Message:  fmt.Sprintf("Coupon %s applied: -$%s", c.Code, discount.StringFixed(2)),
		Coupon:   c,
		Discount: discount,
	}, nil
}

// Consume increments the usage counter inside the caller's transaction.
// Returns ErrCouponUnavailable when the coupon stopped being valid.
func (e *Evaluator) Consume(ctx context.Context, tx storage.Tx, code string) error {
	ok, err := e.repo.ConsumeCoupon(ctx, tx, NormalizeCode(code), e.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrCouponUnavailable
	}
	return nil
}

// CreateRequest representa a requisição para criar um cupom
type CreateRequest struct {
	Code              string              `json:"code" binding:"required"`
	DiscountType      string              `json:"discount_type" binding:"required"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal     `json:"min_purchase_amount"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`
	ExpiryDate        *time.Time          `json:"expiry_date"`
	UsageLimit        *int                `json:"usage_limit"`
	Active            *bool               `json:"active"`
	Description       string              `json:"description"`
}

// Service contém as operações administrativas de cupons
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService cria uma nova instância de Service
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create valida e cadastra um cupom
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Coupon, error) {
	code := NormalizeCode(req.Code)
	dtype, ok := ParseDiscountType(req.DiscountType)

	switch {
	case code == "":
		return nil, fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	case !ok:
		return nil, fmt.Errorf("%w: discount type must be PERCENTAGE or FIXED_AMOUNT", ErrInvalidCoupon)
	case !req.DiscountValue.IsPositive():
		return nil, fmt.Errorf("%w: discount value must be positive", ErrInvalidCoupon)
	case dtype == DiscountPercentage && req.DiscountValue.GreaterThan(decimal.NewFromInt(100)):
		return nil, fmt.Errorf("%w: percentage cannot exceed 100", ErrInvalidCoupon)
	case req.MinPurchaseAmount.IsNegative():
		return nil, fmt.Errorf("%w: minimum purchase amount must not be negative", ErrInvalidCoupon)
	case req.MaxDiscountAmount.Valid && dtype != DiscountPercentage:
		return nil, fmt.Errorf("%w: max discount amount only applies to percentage coupons", ErrInvalidCoupon)
	case req.MaxDiscountAmount.Valid && !req.MaxDiscountAmount.Decimal.IsPositive():
		return nil, fmt.Errorf("%w: max discount amount must be positive", ErrInvalidCoupon)
	case req.UsageLimit != nil && *req.UsageLimit <= 0:
		return nil, fmt.Errorf("%w: usage limit must be positive", ErrInvalidCoupon)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	c := &Coupon{
		ID:                uuid.New().String(),
		Code:              code,
		DiscountType:      dtype,
		DiscountValue:     req.DiscountValue,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		ExpiryDate:        req.ExpiryDate,
		UsageLimit:        req.UsageLimit,
		Active:            active,
		Description:       strings.TrimSpace(req.Description),
		CreatedAt:         s.now(),
	}
	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "🎟️ coupon created", "code", c.Code, "type", c.DiscountType)
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

// ListValid returns the coupons a shopper could apply right now.
func (s *Service) ListValid(ctx context.Context) ([]Coupon, error) {
	all, err := s.repo.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	valid := make([]Coupon, 0, len(all))
	for _, c := range all {
		if c.IsValid(now) {
			valid = append(valid, c)
		}
	}
	return valid, nil
}
