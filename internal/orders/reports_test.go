package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/matheusmosca/bookverse/internal/cart"
	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/users"
)

type salesFixture struct {
	*fixture
	reporter *orders.Reporter
	paid     *orders.Order
	shipped  *orders.Order
	pending  *orders.Order
}

// newSalesFixture places three orders: alice pays one and leaves one
// pending, bob's order is shipped.
func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.book(t, "b1", "10.00", 10)
	b2 := f.book(t, "b2", "12.00", 10)

	for _, u := range []users.User{
		{ID: alice.UserID, Username: "alice", FullName: "Alice Liddell", Email: "alice@example.com", Role: users.RoleUser},
		{ID: bob.UserID, Username: "bob", FullName: "Bob Marley", Email: "bob@example.com", Role: users.RoleUser},
	} {
		require.NoError(t, f.store.CreateUser(ctx, &u))
	}

	paid, err := f.workflow.PlaceOrder(ctx, alice, orders.PlaceOrderRequest{
		Cart: cartOf(cart.Item{Book: b1, Quantity: 2}, cart.Item{Book: b2, Quantity: 1}), Address: "x",
	})
	require.NoError(t, err)
	_, err = f.workflow.ProcessPayment(ctx, alice, paid.ID)
	require.NoError(t, err)

	shipped, err := f.workflow.PlaceOrder(ctx, bob, orders.PlaceOrderRequest{
		Cart: cartOf(cart.Item{Book: b1, Quantity: 1}), Address: "x",
	})
	require.NoError(t, err)
	_, err = f.workflow.ProcessPayment(ctx, bob, shipped.ID)
	require.NoError(t, err)
	_, err = f.workflow.Ship(ctx, admin, shipped.ID)
	require.NoError(t, err)

	pending, err := f.workflow.PlaceOrder(ctx, alice, orders.PlaceOrderRequest{
		Cart: cartOf(cart.Item{Book: b2, Quantity: 5}), Address: "x",
	})
	require.NoError(t, err)

	reporter := orders.NewReporter(f.store, f.store, f.store, tracenoop.NewTracerProvider().Tracer("test"))
	return &salesFixture{fixture: f, reporter: reporter, paid: paid, shipped: shipped, pending: pending}
}

func TestReporter_SalesCountOnlyPaidOrders(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	sales, err := f.reporter.Sales(ctx, admin, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sales.Orders)
	assert.Equal(t, "42", sales.Revenue.String())
	assert.WithinDuration(t, sales.To.Add(-30*24*time.Hour), sales.From, time.Second)

	later := time.Now().Add(time.Hour)
	_, err = f.reporter.Sales(ctx, admin, &later, nil)
	require.ErrorIs(t, err, orders.ErrInvalidRange)

	end := later.Add(time.Hour)
	sales, err = f.reporter.Sales(ctx, admin, &later, &end)
	require.NoError(t, err)
	assert.Zero(t, sales.Orders)
	assert.True(t, sales.Revenue.IsZero())

	_, err = f.reporter.Sales(ctx, alice, nil, nil)
	assert.ErrorIs(t, err, orders.ErrForbidden)
}

func TestReporter_TopSellers(t *testing.T) {
	f := newSalesFixture(t)

	top, err := f.reporter.TopSellers(context.Background(), admin, 0)

	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b1", top[0].BookID)
	assert.Equal(t, "Book b1", top[0].Title)
	assert.Equal(t, 3, top[0].Quantity)
	assert.Equal(t, 2, top[0].Orders)
	assert.Equal(t, "30", top[0].Revenue.String())
	// the pending order for five copies of b2 is not a sale
	assert.Equal(t, "b2", top[1].BookID)
	assert.Equal(t, 1, top[1].Quantity)

	top, err = f.reporter.TopSellers(context.Background(), admin, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestReporter_Customers(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	all, err := f.reporter.Customers(ctx, admin, orders.CustomerFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, 2, all[0].Orders)
	assert.Equal(t, "92", all[0].TotalAmount.String())
	assert.Equal(t, "bob", all[1].Username)

	found, err := f.reporter.Customers(ctx, admin, orders.CustomerFilter{Search: " LIDD "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.UserID, found[0].UserID)

	shipped, err := f.reporter.Customers(ctx, admin, orders.CustomerFilter{Status: orders.StatusShipped})
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, "bob", shipped[0].Username)
	assert.Equal(t, "10", shipped[0].TotalAmount.String())
}

func TestReporter_Dashboard(t *testing.T) {
	f := newSalesFixture(t)

	d, err := f.reporter.Dashboard(context.Background(), admin)

	require.NoError(t, err)
	assert.Equal(t, map[orders.Status]int{
		orders.StatusPending:    1,
		orders.StatusProcessing: 1,
		orders.StatusShipped:    1,
	}, d.StatusCounts)
	assert.Equal(t, 3, d.TotalOrders)
	assert.Equal(t, 2, d.Sales.Orders)
	assert.Len(t, d.TopSellers, 2)
	assert.Len(t, d.RecentOrders, 3)
	require.Len(t, d.ProcessingOrders, 1)
	assert.Equal(t, f.paid.ID, d.ProcessingOrders[0].ID)
	require.Len(t, d.StockReport, 2)
	assert.Equal(t, "b2", d.StockReport[0].ID)
	assert.Equal(t, 9, d.StockReport[0].Stock)

	_, err = f.reporter.Dashboard(context.Background(), bob)
	assert.ErrorIs(t, err, orders.ErrForbidden)
}
