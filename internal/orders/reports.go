package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/money"
)

var ErrInvalidRange = errors.New("invalid report range")

// PaidStatuses são os estados que contam como venda
var PaidStatuses = []Status{StatusProcessing, StatusShipped}

const (
	defaultSalesWindow = 30 * 24 * time.Hour
	defaultTopSellers  = 5
	maxTopSellers      = 50
	dashboardListSize  = 5
)

// Sales resume as vendas pagas de um intervalo fechado
type Sales struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// BookSales agrega as linhas de pedidos pagos de um livro
type BookSales struct {
	BookID   string          `json:"book_id"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// CustomerFilter seleciona os clientes do resumo por usuário
type CustomerFilter struct {
	Search string
	Status Status
}

// CustomerSummary totaliza os pedidos de um cliente
type CustomerSummary struct {
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Orders      int             `json:"orders"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Dashboard é o painel administrativo
type Dashboard struct {
	StatusCounts     map[Status]int `json:"status_counts"`
	TotalOrders      int            `json:"total_orders"`
	Sales            Sales          `json:"sales"`
	TopSellers       []BookSales    `json:"top_sellers"`
	RecentOrders     []Order        `json:"recent_orders"`
	ProcessingOrders []Order        `json:"processing_orders"`
	StockReport      []catalog.Book `json:"stock_report"`
}

// ReportRepository define as consultas somente leitura do painel
type ReportRepository interface {
	CountOrdersByStatus(ctx context.Context) (map[Status]int, error)
	// SalesBetween sums paid orders created in [from, to].
	SalesBetween(ctx context.Context, from, to time.Time) (Sales, error)
	// TopSellers ranks books by quantity sold in paid orders.
	TopSellers(ctx context.Context, limit int) ([]BookSales, error)
	CustomerSummaries(ctx context.Context, f CustomerFilter) ([]CustomerSummary, error)
}

// BookLister lists catalog books for the stock report.
type BookLister interface {
	ListBooks(ctx context.Context, filter catalog.BookFilter) ([]catalog.Book, error)
}

// Reporter monta os relatórios administrativos sobre pedidos e estoque
type Reporter struct {
	reports ReportRepository
	orders  Repository
	books   BookLister
	tracer  trace.Tracer
	now     func() time.Time
}

// NewReporter cria uma nova instância de Reporter
func NewReporter(reports ReportRepository, orders Repository, books BookLister, tracer trace.Tracer) *Reporter {
	return &Reporter{reports: reports, orders: orders, books: books, tracer: tracer, now: time.Now}
}

// WithClock overrides the reporter's time source.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// Range resolves an optional [from, to] pair. A missing end is now and a
// missing start is thirty days before the end.
func (r *Reporter) Range(from, to *time.Time) (time.Time, time.Time, error) {
	end := r.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultSalesWindow)
	if from != nil {
		start = *from
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end of range is before its start", ErrInvalidRange)
	}
	return start, end, nil
}

// Sales retorna o total vendido no intervalo
func (r *Reporter) Sales(ctx context.Context, id auth.Identity, from, to *time.Time) (Sales, error) {
	if !id.IsAdmin() {
		return Sales{}, ErrForbidden
	}
	start, end, err := r.Range(from, to)
	if err != nil {
		return Sales{}, err
	}
	s, err := r.reports.SalesBetween(ctx, start, end)
	if err != nil {
		return Sales{}, err
	}
	s.Revenue = money.Round(s.Revenue)
	return s, nil
}

// TopSellers retorna os livros mais vendidos. O limite fica entre 1 e 50,
// cinco por padrão.
func (r *Reporter) TopSellers(ctx context.Context, id auth.Identity, limit int) ([]BookSales, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = defaultTopSellers
	}
	limit = min(limit, maxTopSellers)

	list, err := r.reports.TopSellers(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Revenue = money.Round(list[i].Revenue)
	}
	return list, nil
}

// Customers resume os pedidos por cliente, maior total primeiro
func (r *Reporter) Customers(ctx context.Context, id auth.Identity, f CustomerFilter) ([]CustomerSummary, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	f.Search = strings.TrimSpace(f.Search)

	list, err := r.reports.CustomerSummaries(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].TotalAmount = money.Round(list[i].TotalAmount)
	}
	return list, nil
}

// Dashboard carrega as seções do painel em paralelo
func (r *Reporter) Dashboard(ctx context.Context, id auth.Identity) (Dashboard, error) {
	ctx, span := r.tracer.Start(ctx, "orders.dashboard")
	defer span.End()

	if !id.IsAdmin() {
		return Dashboard{}, ErrForbidden
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := r.reports.CountOrdersByStatus(gctx)
		if err != nil {
			return err
		}
		d.StatusCounts = counts
		for _, n := range counts {
			d.TotalOrders += n
		}
		return nil
	})
	g.Go(func() error {
		s, err := r.Sales(gctx, id, nil, nil)
		d.Sales = s
		return err
	})
	g.Go(func() error {
		top, err := r.TopSellers(gctx, id, defaultTopSellers)
		d.TopSellers = top
		return err
	})
	g.Go(func() error {
		recent, _, err := r.orders.ListOrders(gctx, Filter{Page: 1, Size: dashboardListSize})
		d.RecentOrders = recent
		return err
	})
	g.Go(func() error {
		processing, _, err := r.orders.ListOrders(gctx, Filter{Status: StatusProcessing, Page: 1, Size: dashboardListSize})
		d.ProcessingOrders = processing
		return err
	})
	g.Go(func() error {
		books, err := r.books.ListBooks(gctx, catalog.BookFilter{})
		if err != nil {
			return err
		}
		sort.SliceStable(books, func(i, j int) bool { return books[i].Stock > books[j].Stock })
		d.StockReport = books[:min(len(books), dashboardListSize)]
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
