package orders_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/storage/postgres"
	"github.com/matheusmosca/bookverse/internal/storage/postgres/pgmock"
)

const (
	orderID = "0b9d6f3e-5c1a-4e57-9a51-6a2f1d9c0e11"
	userID  = "6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f"
	bookID  = "3c2b1a09-8f7e-4d6c-9b5a-4f3e2d1c0b9a"
)

func sqlContaining(parts ...string) any {
	return mock.MatchedBy(func(sql string) bool {
		for _, p := range parts {
			if !strings.Contains(sql, p) {
				return false
			}
		}
		return true
	})
}

func orderRow(status orders.Status) *pgmock.Row {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgmock.RowOf(orderID, userID, decimal.RequireFromString("35.00"), string(status), "Main St 1", "",
		"FIVE", decimal.NewFromInt(5), now, now)
}

func TestNewPostgresRepository(t *testing.T) {
	// Arrange
	var db *pgxpool.Pool

	// Act
	repo := orders.NewPostgresRepository(db)

	// Assert
	assert.NotNil(t, repo)
	assert.IsType(t, &orders.PostgresRepository{}, repo)
}

func TestPostgresRepository_MalformedIDIsNotFound(t *testing.T) {
	// Arrange
	pool := new(pgmock.Pool)
	tx := new(pgmock.Tx)
	repo := orders.NewPostgresRepository(pool)
	ctx := context.Background()

	// Act
	_, getErr := repo.GetOrder(ctx, "abc")
	_, lockErr := repo.GetOrderForUpdate(ctx, postgres.WrapTx(tx), "42")
	updateErr := repo.UpdateOrderStatus(ctx, postgres.WrapTx(tx), "not-a-uuid", orders.StatusShipped, time.Now())
	list, total, listErr := repo.ListOrders(ctx, orders.Filter{UserID: "nope", Page: 1, Size: 20})

	// Assert
	assert.ErrorIs(t, getErr, orders.ErrOrderNotFound)
	assert.ErrorIs(t, lockErr, orders.ErrOrderNotFound)
	assert.ErrorIs(t, updateErr, orders.ErrOrderNotFound)
	require.NoError(t, listErr)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.Empty(t, pool.Calls)
	assert.Empty(t, tx.Calls)
}

func TestPostgresRepository_GetOrderForUpdateLocksRowAndLoadsItems(t *testing.T) {
	// Arrange
	tx := new(pgmock.Tx)
	repo := orders.NewPostgresRepository(new(pgmock.Pool))
	ctx := context.Background()

	tx.On("QueryRow", ctx, sqlContaining("FROM orders WHERE id = $1 FOR UPDATE"), []any{orderID}).
		Return(orderRow(orders.StatusPending))
	items := pgmock.RowsOf([]any{"i1", orderID, bookID, "Dune", 2, decimal.RequireFromString("20.00")})
	tx.On("Query", ctx, sqlContaining("FROM order_items WHERE order_id = $1"), []any{orderID}).Return(items, nil)

	// Act
	o, err := repo.GetOrderForUpdate(ctx, postgres.WrapTx(tx), orderID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "FIVE", o.CouponCode)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "Dune", o.Items[0].BookTitle)
	assert.True(t, items.Closed)
	tx.AssertExpectations(t)
}

func TestPostgresRepository_GetOrderMissingRow(t *testing.T) {
	pool := new(pgmock.Pool)
	pool.On("QueryRow", mock.Anything, mock.Anything, []any{orderID}).Return(pgmock.ErrRow(pgx.ErrNoRows))

	_, err := orders.NewPostgresRepository(pool).GetOrder(context.Background(), orderID)

	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	pool.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostgresRepository_CreateOrderQueuesEveryItem(t *testing.T) {
	// Arrange
	ctx := context.Background()
	order := &orders.Order{ID: orderID, UserID: userID, Status: orders.StatusPending, Items: []orders.Item{
		{ID: "i1", OrderID: orderID, BookID: bookID, BookTitle: "Dune", Quantity: 1, Price: decimal.NewFromInt(20)},
		{ID: "i2", OrderID: orderID, BookID: bookID, BookTitle: "Emma", Quantity: 3, Price: decimal.NewFromInt(9)},
	}}
	twoItems := mock.MatchedBy(func(b *pgx.Batch) bool { return b.Len() == 2 })

	t.Run("inserts the order and batches the items", func(t *testing.T) {
		tx := new(pgmock.Tx)
		tx.On("Exec", ctx, sqlContaining("INSERT INTO orders"), mock.Anything).Return(pgmock.Tag("INSERT 0 1"), nil)
		tx.On("SendBatch", ctx, twoItems).Return(&pgmock.BatchResults{})

		err := orders.NewPostgresRepository(new(pgmock.Pool)).CreateOrder(ctx, postgres.WrapTx(tx), order)

		require.NoError(t, err)
		tx.AssertExpectations(t)
	})

	t.Run("a failed item insert fails the order", func(t *testing.T) {
		tx := new(pgmock.Tx)
		tx.On("Exec", ctx, mock.Anything, mock.Anything).Return(pgmock.Tag("INSERT 0 1"), nil)
		tx.On("SendBatch", ctx, twoItems).Return(&pgmock.BatchResults{Err: errors.New("foreign key violation")})

		err := orders.NewPostgresRepository(new(pgmock.Pool)).CreateOrder(ctx, postgres.WrapTx(tx), order)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert order items")
	})
}

func TestPostgresRepository_UpdateOrderStatusWithoutRow(t *testing.T) {
	tx := new(pgmock.Tx)
	tx.On("Exec", mock.Anything, sqlContaining("UPDATE orders SET status"), mock.Anything).Return(pgmock.Tag("UPDATE 0"), nil)

	err := orders.NewPostgresRepository(new(pgmock.Pool)).
		UpdateOrderStatus(context.Background(), postgres.WrapTx(tx), orderID, orders.StatusShipped, time.Now())

	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestPostgresRepository_ListOrdersBuildsFilter(t *testing.T) {
	// Arrange
	pool := new(pgmock.Pool)
	ctx := context.Background()
	pool.On("QueryRow", ctx, "SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = $2", []any{userID, "pending"}).
		Return(pgmock.RowOf(11))
	pool.On("Query", ctx, sqlContaining("WHERE user_id = $1 AND status = $2", "ORDER BY created_at DESC", "LIMIT $3 OFFSET $4"),
		[]any{userID, "pending", 10, 10}).
		Return(pgmock.RowsOf(), nil)

	// Act
	list, total, err := orders.NewPostgresRepository(pool).ListOrders(ctx, orders.Filter{
		UserID: userID, Status: orders.StatusPending, Page: 2, Size: 10,
	})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 11, total)
	pool.AssertExpectations(t)
}

func TestPostgresRepository_DeleteStaleOrderSkipsWhenNotLocked(t *testing.T) {
	tx := new(pgmock.Tx)
	tx.On("QueryRow", mock.Anything, sqlContaining("FOR UPDATE"), mock.Anything).Return(pgmock.ErrRow(pgx.ErrNoRows))

	deleted, err := orders.NewPostgresRepository(new(pgmock.Pool)).
		DeleteStaleOrder(context.Background(), postgres.WrapTx(tx), orderID, time.Now())

	require.NoError(t, err)
	assert.False(t, deleted)
	tx.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostgresRepository_Reports(t *testing.T) {
	ctx := context.Background()
	paid := []string{"processing", "shipped"}

	t.Run("sales sum paid orders in range", func(t *testing.T) {
		from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		pool := new(pgmock.Pool)
		pool.On("QueryRow", ctx, sqlContaining("status = ANY($1)", "created_at >= $2", "created_at <= $3"),
			[]any{paid, from, to}).
			Return(pgmock.RowOf(4, decimal.RequireFromString("120.50")))

		s, err := orders.NewPostgresRepository(pool).SalesBetween(ctx, from, to)

		require.NoError(t, err)
		assert.Equal(t, 4, s.Orders)
		assert.Equal(t, "120.5", s.Revenue.String())
		assert.Equal(t, from, s.From)
	})

	t.Run("top sellers rank by quantity", func(t *testing.T) {
		pool := new(pgmock.Pool)
		pool.On("Query", ctx, sqlContaining("FROM order_items i JOIN orders o", "ORDER BY SUM(i.quantity) DESC", "LIMIT $2"),
			[]any{paid, 3}).
			Return(pgmock.RowsOf([]any{bookID, "Dune", 7, 4, decimal.NewFromInt(140)}), nil)

		top, err := orders.NewPostgresRepository(pool).TopSellers(ctx, 3)

		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, 7, top[0].Quantity)
		assert.Equal(t, 4, top[0].Orders)
	})

	t.Run("customer search binds one pattern", func(t *testing.T) {
		pool := new(pgmock.Pool)
		pool.On("Query", ctx,
			sqlContaining("WHERE o.status = $1 AND (u.username ILIKE $2 OR u.email ILIKE $2 OR u.full_name ILIKE $2)"),
			[]any{"shipped", "%ali%"}).
			Return(pgmock.RowsOf([]any{userID, "alice", "Alice", "a@example.com", 2, decimal.NewFromInt(50)}), nil)

		list, err := orders.NewPostgresRepository(pool).CustomerSummaries(ctx, orders.CustomerFilter{
			Search: "ali", Status: orders.StatusShipped,
		})

		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "alice", list[0].Username)
		assert.Equal(t, 2, list[0].Orders)
	})

	t.Run("status counts", func(t *testing.T) {
		pool := new(pgmock.Pool)
		pool.On("Query", ctx, sqlContaining("GROUP BY status"), mock.Anything).
			Return(pgmock.RowsOf([]any{"pending", 3}, []any{"shipped", 1}), nil)

		counts, err := orders.NewPostgresRepository(pool).CountOrdersByStatus(ctx)

		require.NoError(t, err)
		assert.Equal(t, map[orders.Status]int{orders.StatusPending: 3, orders.StatusShipped: 1}, counts)
	})
}

func TestHandler_GetOrderWithMalformedID(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	pool := new(pgmock.Pool)
	workflow := orders.NewWorkflow(nil, orders.NewPostgresRepository(pool), nil, nil, nil, nil,
		tracenoop.NewTracerProvider().Tracer("test"), orders.Metrics{})
	r := gin.New()
	r.GET("/orders/:id", orders.NewHandler(workflow).GetOrder)

	// Act
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "order not found")
	assert.Empty(t, pool.Calls)
}
