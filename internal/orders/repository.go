package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/matheusmosca/bookverse/internal/storage"
	"github.com/matheusmosca/bookverse/internal/storage/postgres"
)

// Repository define a interface para operações de banco de dados de pedidos
type Repository interface {
	CreateOrder(ctx context.Context, tx storage.Tx, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	GetOrderForUpdate(ctx context.Context, tx storage.Tx, id string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, tx storage.Tx, id string, status Status, at time.Time) error
	ListOrders(ctx context.Context, filter Filter) ([]Order, int, error)
	ListPendingOrdersBefore(ctx context.Context, cutoff time.Time) ([]Order, error)
	// DeleteStaleOrder removes the items and then the order, but only while
	// the order is still pending and older than cutoff.
	DeleteStaleOrder(ctx context.Context, tx storage.Tx, id string, cutoff time.Time) (bool, error)
}

// PostgresRepository implementa Repository e ReportRepository usando PostgreSQL
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, user_id, total_amount, status, address, note, coupon_code, coupon_discount, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.Address, &o.Note,
		&o.CouponCode, &o.CouponDiscount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func loadItems(ctx context.Context, q postgres.Querier, o *Order) error {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, book_id, book_title, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY book_title, id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	o.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.BookTitle, &it.Quantity, &it.Price); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// CreateOrder insere o pedido e seus itens na transação do chamador
func (r *PostgresRepository) CreateOrder(ctx context.Context, tx storage.Tx, o *Order) error {
	pgTx := postgres.Unwrap(tx)

	_, err := pgTx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, address, note, coupon_code, coupon_discount,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.UserID, o.TotalAmount, string(o.Status), o.Address, o.Note, o.CouponCode, o.CouponDiscount,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (id, order_id, book_id, book_title, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, it.OrderID, it.BookID, it.BookTitle, it.Quantity, it.Price)
	}
	if err := pgTx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*Order, error) {
	if !postgres.ValidID(id) {
		return nil, ErrOrderNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.db, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrderForUpdate obtém o pedido com lock pessimista (FOR UPDATE)
func (r *PostgresRepository) GetOrderForUpdate(ctx context.Context, tx storage.Tx, id string) (*Order, error) {
	if !postgres.ValidID(id) {
		return nil, ErrOrderNotFound
	}
	pgTx := postgres.Unwrap(tx)

	o, err := scanOrder(pgTx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, pgTx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, tx storage.Tx, id string, status Status, at time.Time) error {
	if !postgres.ValidID(id) {
		return ErrOrderNotFound
	}
	pgTx := postgres.Unwrap(tx)

	tag, err := pgTx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`, string(status), at, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListOrders lista pedidos sem os itens, mais recentes primeiro
func (r *PostgresRepository) ListOrders(ctx context.Context, f Filter) ([]Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" && !postgres.ValidID(f.UserID) {
		return []Order{}, 0, nil
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	args = append(args, f.Size, (f.Page-1)*f.Size)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	list := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *o)
	}
	return list, total, rows.Err()
}

func (r *PostgresRepository) ListPendingOrdersBefore(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
	`, string(StatusPending), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) DeleteStaleOrder(ctx context.Context, tx storage.Tx, id string, cutoff time.Time) (bool, error) {
	pgTx := postgres.Unwrap(tx)

	var locked string
	err := pgTx.QueryRow(ctx, `
		SELECT id FROM orders WHERE id = $1 AND status = $2 AND created_at < $3 FOR UPDATE
	`, id, string(StatusPending), cutoff).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock stale order: %w", err)
	}

	if _, err := pgTx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return false, fmt.Errorf("failed to delete order items: %w", err)
	}
	if _, err := pgTx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) CountOrdersByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

func paidStatuses() []string {
	list := make([]string, len(PaidStatuses))
	for i, s := range PaidStatuses {
		list[i] = string(s)
	}
	return list
}

func (r *PostgresRepository) SalesBetween(ctx context.Context, from, to time.Time) (Sales, error) {
	s := Sales{From: from, To: to}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders
		WHERE status = ANY($1) AND created_at >= $2 AND created_at <= $3
	`, paidStatuses(), from, to).Scan(&s.Orders, &s.Revenue)
	if err != nil {
		return Sales{}, fmt.Errorf("failed to sum sales: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) TopSellers(ctx context.Context, limit int) ([]BookSales, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.book_id, MAX(i.book_title), SUM(i.quantity), COUNT(DISTINCT i.order_id), SUM(i.price * i.quantity)
		FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE o.status = ANY($1)
		GROUP BY i.book_id
		ORDER BY SUM(i.quantity) DESC, i.book_id
		LIMIT $2
	`, paidStatuses(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank top sellers: %w", err)
	}
	defer rows.Close()

	list := []BookSales{}
	for rows.Next() {
		var b BookSales
		if err := rows.Scan(&b.BookID, &b.Title, &b.Quantity, &b.Orders, &b.Revenue); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// CustomerSummaries agrupa os pedidos por usuário, com busca por nome ou email
func (r *PostgresRepository) CustomerSummaries(ctx context.Context, f CustomerFilter) ([]CustomerSummary, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(u.username ILIKE $%d OR u.email ILIKE $%d OR u.full_name ILIKE $%d)", n, n, n))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.username, u.full_name, u.email, COUNT(o.id), SUM(o.total_amount)
		FROM orders o JOIN users u ON u.id = o.user_id`+cond+`
		GROUP BY u.id, u.username, u.full_name, u.email
		ORDER BY SUM(o.total_amount) DESC, u.username
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize orders by customer: %w", err)
	}
	defer rows.Close()

	list := []CustomerSummary{}
	for rows.Next() {
		var c CustomerSummary
		if err := rows.Scan(&c.UserID, &c.Username, &c.FullName, &c.Email, &c.Orders, &c.TotalAmount); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
