package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matheusmosca/bookverse/internal/storage"
	"github.com/matheusmosca/bookverse/internal/storage/postgres"
)

// Repository define a interface para operações de banco de dados de cupons
type Repository interface {
	GetCouponByCode(ctx context.Context, code string) (*Coupon, error)
	// ConsumeCoupon increments used_count only while the coupon is still
	// valid at now; it reports whether a row was updated.
	ConsumeCoupon(ctx context.Context, tx storage.Tx, code string, now time.Time) (bool, error)
	CreateCoupon(ctx context.Context, c *Coupon) error
	ListCoupons(ctx context.Context) ([]Coupon, error)
}

// PostgresRepository implementa Repository usando PostgreSQL
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const couponColumns = `id, code, discount_type, discount_value, min_purchase_amount, max_discount_amount,
	expiry_date, usage_limit, used_count, active, description, created_at`

func scanCoupon(row pgx.Row) (*Coupon, error) {
	var (
		c     Coupon
		dtype string
	)
	err := row.Scan(&c.ID, &c.Code, &dtype, &c.DiscountValue, &c.MinPurchaseAmount, &c.MaxDiscountAmount,
		&c.ExpiryDate, &c.UsageLimit, &c.UsedCount, &c.Active, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	c.DiscountType = DiscountType(dtype)
	return &c, nil
}

func (r *PostgresRepository) GetCouponByCode(ctx context.Context, code string) (*Coupon, error) {
	return scanCoupon(r.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
}

func (r *PostgresRepository) ConsumeCoupon(ctx context.Context, tx storage.Tx, code string, now time.Time) (bool, error) {
	pgTx := postgres.Unwrap(tx)

	tag, err := pgTx.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1
		  AND active = TRUE
		  AND (expiry_date IS NULL OR expiry_date > $2)
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume coupon: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) CreateCoupon(ctx context.Context, c *Coupon) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_purchase_amount, max_discount_amount,
			expiry_date, usage_limit, used_count, active, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinPurchaseAmount, c.MaxDiscountAmount,
		c.ExpiryDate, c.UsageLimit, c.UsedCount, c.Active, c.Description, c.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListCoupons(ctx context.Context) ([]Coupon, error) {
	rows, err := r.db.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}
