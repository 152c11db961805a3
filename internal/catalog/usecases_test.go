package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/storage/memory"
)

func newService(t *testing.T, threshold int, stocks map[string]int) (*catalog.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	for title, stock := range stocks {
		require.NoError(t, store.CreateBook(context.Background(), &catalog.Book{
			ID: title, Title: title, Price: decimal.NewFromInt(10), Stock: stock,
		}))
	}
	return catalog.NewService(store, tracenoop.NewTracerProvider().Tracer("test"), threshold), store
}

func titles(books []catalog.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestLowStockAndOutOfStock(t *testing.T) {
	svc, store := newService(t, 10, map[string]int{"a": 0, "b": 1, "c": 9, "d": 10, "e": 3})
	require.NoError(t, store.SoftDeleteBook(context.Background(), "e"))

	low, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, titles(low))

	out, err := svc.OutOfStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(out))
}

func TestGetBook_DeletedIsUnavailable(t *testing.T) {
	svc, store := newService(t, 10, map[string]int{"a": 1})
	require.NoError(t, store.SoftDeleteBook(context.Background(), "a"))

	_, err := svc.GetBook(context.Background(), "a")
	assert.ErrorIs(t, err, catalog.ErrBookUnavailable)

	_, err = svc.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
	assert.True(t, catalog.IsLookupError(err))
}

func TestCreateBook_Validation(t *testing.T) {
	svc, _ := newService(t, 10, nil)
	ctx := context.Background()

	cases := map[string]catalog.CreateBookRequest{
		"blank title":       {Title: "  ", Price: decimal.NewFromInt(1)},
		"negative price":    {Title: "x", Price: decimal.NewFromInt(-1)},
		"negative stock":    {Title: "x", Stock: -1},
		"discount over 100": {Title: "x", DiscountPercent: decimal.NewFromInt(101)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateBook(ctx, req)
			assert.ErrorIs(t, err, catalog.ErrInvalidBook)
		})
	}

	book, err := svc.CreateBook(ctx, catalog.CreateBookRequest{Title: " Dune ", Price: decimal.NewFromInt(20), Stock: 4})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)

	found, err := svc.ListBooks(ctx, "dun")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
