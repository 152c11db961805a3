package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matheusmosca/bookverse/internal/storage"
)

// Config agrupa os parâmetros de conexão com o PostgreSQL
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

// DSN returns a keyword/value connection string understood by both pgx and lib/pq.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

// Connect cria o pool de conexões e aguarda o banco ficar disponível
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	config.MaxConns = cfg.MaxConns
	config.MinConns = cfg.MinConns
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			slog.InfoContext(ctx, "✅ connected to bookverse database", "host", cfg.Host, "db", cfg.Name)
			return pool, nil
		}
		slog.InfoContext(ctx, "⏳ waiting for database", "attempt", i+1, "max", 30)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

// Querier é a superfície de consulta comum a *pgxpool.Pool e pgx.Tx
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ValidID reports whether id can be compared against a UUID column. Lookups
// with any other id are answered as not found without a round trip.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// DB implementa storage.TxManager sobre um pgxpool
type DB struct {
	pool *pgxpool.Pool
}

// NewDB cria uma nova instância de DB
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Pool exposes the underlying pool to the repositories.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// BeginTx inicia uma nova transação em READ COMMITTED. Quem altera estoque
// trava as linhas com SELECT ... FOR UPDATE antes de revalidar e gravar.
func (db *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return WrapTx(tx), nil
}

// Tx implementa a interface storage.Tx
type Tx struct {
	tx pgx.Tx
}

// WrapTx adapts a pgx transaction to storage.Tx.
func WrapTx(tx pgx.Tx) *Tx {
	return &Tx{tx: tx}
}

func (t *Tx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback(context.Background())
}

// Unwrap returns the pgx transaction behind tx. It panics when tx was not
// opened by DB.BeginTx, which is a wiring bug rather than a runtime condition.
func Unwrap(tx storage.Tx) pgx.Tx {
	return tx.(*Tx).tx
}
