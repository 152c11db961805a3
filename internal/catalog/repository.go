package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matheusmosca/bookverse/internal/storage"
	"github.com/matheusmosca/bookverse/internal/storage/postgres"
)

// Repository define a interface para operações de banco de dados do catálogo
type Repository interface {
	GetBook(ctx context.Context, id string) (*Book, error)
	GetBookForUpdate(ctx context.Context, tx storage.Tx, id string) (*Book, error)
	UpdateBookStock(ctx context.Context, tx storage.Tx, id string, stock int) error
	CreateBook(ctx context.Context, book *Book) error
	SoftDeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context, filter BookFilter) ([]Book, error)
}

// PostgresRepository implementa Repository usando PostgreSQL
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bookColumns = `id, title, author, category_id, price, stock, discount_percent,
	discount_start, discount_end, deleted, created_at, updated_at`

func scanBook(row pgx.Row) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.CategoryID, &b.Price, &b.Stock, &b.DiscountPercent,
		&b.DiscountStart, &b.DiscountEnd, &b.Deleted, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBook busca um livro, inclusive os removidos logicamente
func (r *PostgresRepository) GetBook(ctx context.Context, id string) (*Book, error) {
	if !postgres.ValidID(id) {
		return nil, ErrBookNotFound
	}
	return scanBook(r.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
}

// GetBookForUpdate obtém o livro com lock pessimista (FOR UPDATE)
func (r *PostgresRepository) GetBookForUpdate(ctx context.Context, tx storage.Tx, id string) (*Book, error) {
	if !postgres.ValidID(id) {
		return nil, ErrBookNotFound
	}
	pgTx := postgres.Unwrap(tx)

	book, err := scanBook(pgTx.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, ErrBookNotFound) {
		return nil, fmt.Errorf("failed to get book with lock: %w", err)
	}
	return book, err
}

// UpdateBookStock grava o novo estoque dentro da transação do chamador
func (r *PostgresRepository) UpdateBookStock(ctx context.Context, tx storage.Tx, id string, stock int) error {
	if !postgres.ValidID(id) {
		return ErrBookNotFound
	}
	pgTx := postgres.Unwrap(tx)

	tag, err := pgTx.Exec(ctx, `UPDATE books SET stock = $1, updated_at = NOW() WHERE id = $2`, stock, id)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateBook(ctx context.Context, b *Book) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO books (id, title, author, category_id, price, stock, discount_percent,
			discount_start, discount_end, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.Title, b.Author, b.CategoryID, b.Price, b.Stock, b.DiscountPercent,
		b.DiscountStart, b.DiscountEnd, b.Deleted, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDeleteBook(ctx context.Context, id string) error {
	if !postgres.ValidID(id) {
		return ErrBookNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE books SET deleted = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// ListBooks lista os livros aplicando os filtros informados
func (r *PostgresRepository) ListBooks(ctx context.Context, filter BookFilter) ([]Book, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if !filter.IncludeDeleted {
		where = append(where, "deleted = FALSE")
	}
	if filter.Title != "" {
		add("title ILIKE $%d", "%"+filter.Title+"%")
	}
	if filter.Stock.Min != nil {
		add("stock >= $%d", *filter.Stock.Min)
	}
	if filter.Stock.Max != nil {
		add("stock <= $%d", *filter.Stock.Max)
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY title ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}
