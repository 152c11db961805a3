package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matheusmosca/bookverse/internal/storage/postgres"
)

// Repository define a interface para operações de banco de dados de usuários
type Repository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}

// PostgresRepository implementa Repository usando PostgreSQL
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role, err = ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return &u, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*User, error) {
	if !postgres.ValidID(id) {
		return nil, ErrUserNotFound
	}
	return r.scanUser(r.db.QueryRow(ctx, `
		SELECT id, username, full_name, email, role, created_at
		FROM users WHERE id = $1
	`, id))
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.db.QueryRow(ctx, `
		SELECT id, username, full_name, email, role, created_at
		FROM users WHERE username = $1
	`, username))
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, username, full_name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.FullName, u.Email, string(u.Role), u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
