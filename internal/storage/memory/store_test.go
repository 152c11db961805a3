package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/inventory"
	"github.com/matheusmosca/bookverse/internal/orders"
)

func seedBook(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	require.NoError(t, s.CreateBook(context.Background(), &catalog.Book{
		ID: id, Title: "Book " + id, Price: decimal.NewFromInt(10), Stock: stock,
	}))
}

func TestTx_RollbackRestoresState(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedBook(t, s, "b1", 5)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateBookStock(ctx, tx, "b1", 2))
	require.NoError(t, s.AppendTransaction(ctx, tx, &inventory.Transaction{ID: "t1", BookID: "b1"}))
	require.NoError(t, s.CreateOrder(ctx, tx, &orders.Order{ID: "o1", Status: orders.StatusPending}))
	require.NoError(t, tx.Rollback())

	b, err := s.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 5, b.Stock)

	_, err = s.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, inventory.ErrTransactionNotFound)
	_, err = s.GetOrder(ctx, "o1")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestTx_CommitKeepsWritesAndRollbackAfterCommitIsNoop(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedBook(t, s, "b1", 5)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateBookStock(ctx, tx, "b1", 7))
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())

	b, err := s.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 7, b.Stock)
}

func TestTx_FinishedTxIsRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedBook(t, s, "b1", 5)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.ErrorIs(t, s.UpdateBookStock(ctx, tx, "b1", 1), ErrForeignTx)
}

func TestTx_Serialized(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedBook(t, s, "b1", 5)

	first, err := s.BeginTx(ctx)
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		second, err := s.BeginTx(ctx)
		if err == nil {
			second.Rollback()
		}
		close(done)
	}()

	<-started
	select {
	case <-done:
		t.Fatal("second transaction began while the first was open")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Commit())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second transaction never began")
	}
}

func TestUpdateBookStock_NeverNegative(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedBook(t, s, "b1", 1)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.ErrorIs(t, s.UpdateBookStock(ctx, tx, "b1", -1), catalog.ErrInsufficientStock)
}

func TestListTransactions_NewestFirstAndPaged(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedBook(t, s, "b1", 0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.AppendTransaction(ctx, tx, &inventory.Transaction{
			ID: id, BookID: "b1", Type: inventory.TypeImport, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, tx.Commit())

	items, total, err := s.ListTransactions(ctx, inventory.Query{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "t3", items[0].ID)
	assert.Equal(t, "t2", items[1].ID)
	assert.Equal(t, "Book b1", items[0].BookTitle)

	items, _, err = s.ListTransactions(ctx, inventory.Query{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t1", items[0].ID)
}
