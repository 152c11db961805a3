package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matheusmosca/bookverse/internal/storage"
	"github.com/matheusmosca/bookverse/internal/storage/postgres"
)

// Query seleciona transações; Limit <= 0 returns every match.
type Query struct {
	Filter HistoryFilter
	Limit  int
	Offset int
}

// Repository define a interface do ledger. Não há update nem delete.
type Repository interface {
	AppendTransaction(ctx context.Context, tx storage.Tx, t *Transaction) error
	ListTransactions(ctx context.Context, q Query) ([]Transaction, int, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
}

// PostgresRepository implementa Repository usando PostgreSQL
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AppendTransaction grava o registro na mesma transação da escrita de estoque
func (r *PostgresRepository) AppendTransaction(ctx context.Context, tx storage.Tx, t *Transaction) error {
	pgTx := postgres.Unwrap(tx)

	_, err := pgTx.Exec(ctx, `
		INSERT INTO inventory_transactions (id, book_id, type, quantity, stock_before, stock_after,
			reason, note, created_by, reference_type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, NULLIF($11, '')::uuid, $12)
	`, t.ID, t.BookID, string(t.Type), t.Quantity, t.StockBefore, t.StockAfter,
		t.Reason, t.Note, t.CreatedBy, string(t.ReferenceType), t.ReferenceID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append inventory transaction: %w", err)
	}
	return nil
}

const transactionColumns = `t.id, t.book_id, COALESCE(b.title, ''), t.type, t.quantity, t.stock_before, t.stock_after,
	t.reason, t.note, COALESCE(t.created_by::text, ''), t.reference_type, COALESCE(t.reference_id::text, ''), t.created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t        Transaction
		typ, ref string
	)
	err := row.Scan(&t.ID, &t.BookID, &t.BookTitle, &typ, &t.Quantity, &t.StockBefore, &t.StockAfter,
		&t.Reason, &t.Note, &t.CreatedBy, &ref, &t.ReferenceID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Type = TransactionType(typ)
	t.ReferenceType = ReferenceType(ref)
	return &t, nil
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	if !postgres.ValidID(id) {
		return nil, ErrTransactionNotFound
	}
	return scanTransaction(r.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM inventory_transactions t LEFT JOIN books b ON b.id = t.book_id
		WHERE t.id = $1
	`, id))
}

// ListTransactions aplica os filtros combinados e retorna também o total
func (r *PostgresRepository) ListTransactions(ctx context.Context, q Query) ([]Transaction, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	f := q.Filter
	if f.BookID != "" && !postgres.ValidID(f.BookID) {
		return []Transaction{}, 0, nil
	}
	if f.BookID != "" {
		add("t.book_id = $%d", f.BookID)
	}
	if f.Type != "" {
		add("t.type = $%d", string(f.Type))
	}
	if f.From != nil {
		add("t.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("t.created_at <= $%d", *f.To)
	}

	from := ` FROM inventory_transactions t LEFT JOIN books b ON b.id = t.book_id`
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + from + ` ORDER BY t.created_at DESC, t.id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory transactions: %w", err)
	}
	defer rows.Close()

	items := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *t)
	}
	return items, total, rows.Err()
}
