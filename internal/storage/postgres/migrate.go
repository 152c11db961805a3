package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// schema cria as tabelas da livraria. Os comandos são idempotentes e a
// migração roda a cada boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		username   VARCHAR(100) NOT NULL UNIQUE,
		full_name  VARCHAR(200) NOT NULL DEFAULT '',
		email      VARCHAR(200) NOT NULL DEFAULT '',
		role       VARCHAR(20)  NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN')),
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id               UUID PRIMARY KEY,
		title            VARCHAR(255)  NOT NULL,
		author           VARCHAR(255)  NOT NULL DEFAULT '',
		category_id      VARCHAR(64)   NOT NULL DEFAULT '',
		price            NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		stock            INTEGER       NOT NULL DEFAULT 0 CHECK (stock >= 0),
		discount_percent NUMERIC(5,2)  NOT NULL DEFAULT 0,
		discount_start   TIMESTAMPTZ,
		discount_end     TIMESTAMPTZ,
		deleted          BOOLEAN       NOT NULL DEFAULT FALSE,
		created_at       TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id                  UUID PRIMARY KEY,
		code                VARCHAR(64)   NOT NULL UNIQUE,
		discount_type       VARCHAR(20)   NOT NULL CHECK (discount_type IN ('PERCENTAGE', 'FIXED_AMOUNT')),
		discount_value      NUMERIC(12,2) NOT NULL,
		min_purchase_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		max_discount_amount NUMERIC(12,2),
		expiry_date         TIMESTAMPTZ,
		usage_limit         INTEGER,
		used_count          INTEGER       NOT NULL DEFAULT 0,
		active              BOOLEAN       NOT NULL DEFAULT TRUE,
		description         TEXT          NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id              UUID PRIMARY KEY,
		user_id         UUID          NOT NULL REFERENCES users(id),
		total_amount    NUMERIC(12,2) NOT NULL,
		status          VARCHAR(20)   NOT NULL CHECK (status IN ('pending', 'processing', 'shipped')),
		address         TEXT          NOT NULL,
		note            TEXT          NOT NULL DEFAULT '',
		coupon_code     VARCHAR(64)   NOT NULL DEFAULT '',
		coupon_discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         UUID PRIMARY KEY,
		order_id   UUID          NOT NULL REFERENCES orders(id),
		book_id    UUID          NOT NULL REFERENCES books(id),
		book_title VARCHAR(255)  NOT NULL DEFAULT '',
		quantity   INTEGER       NOT NULL CHECK (quantity > 0),
		price      NUMERIC(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id             UUID PRIMARY KEY,
		book_id        UUID         NOT NULL REFERENCES books(id),
		type           VARCHAR(20)  NOT NULL CHECK (type IN ('IMPORT', 'EXPORT', 'ADJUSTMENT')),
		quantity       INTEGER      NOT NULL,
		stock_before   INTEGER      NOT NULL,
		stock_after    INTEGER      NOT NULL CHECK (stock_after >= 0),
		reason         VARCHAR(255) NOT NULL DEFAULT '',
		note           TEXT         NOT NULL DEFAULT '',
		created_by     UUID,
		reference_type VARCHAR(20)  NOT NULL CHECK (reference_type IN ('MANUAL', 'ORDER')),
		reference_id   UUID,
		created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CHECK (stock_after = stock_before + quantity)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status_created_at ON orders(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_book_id ON inventory_transactions(book_id)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_created_at ON inventory_transactions(created_at DESC)`,
}

// Migrate aplica o schema usando database/sql com o driver lib/pq
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	slog.InfoContext(ctx, "✅ schema migrated", "statements", len(schema))
	return nil
}
