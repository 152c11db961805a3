package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/storage"
)

// BookStore is the slice of the catalog the ledger writes through.
type BookStore interface {
	GetBookForUpdate(ctx context.Context, tx storage.Tx, id string) (*catalog.Book, error)
	UpdateBookStock(ctx context.Context, tx storage.Tx, id string, stock int) error
}

// Ledger é o único escritor de Book.stock fora do cadastro do catálogo
type Ledger struct {
	txm     storage.TxManager
	books   BookStore
	repo    Repository
	tracer  trace.Tracer
	counter metric.Int64Counter
	now     func() time.Time
}

// NewLedger cria uma nova instância de Ledger
func NewLedger(
	txm storage.TxManager,
	books BookStore,
	repo Repository,
	tracer trace.Tracer,
	counter metric.Int64Counter,
) *Ledger {
	return &Ledger{
		txm:     txm,
		books:   books,
		repo:    repo,
		tracer:  tracer,
		counter: counter,
		now:     time.Now,
	}
}

// WithClock overrides the ledger's time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

type entry struct {
	typ     TransactionType
	delta   int
	reason  string
	note    string
	actor   string
	refType ReferenceType
	refID   string
}

// apply grava o novo estoque e anexa o registro na transação do chamador.
// O livro já deve estar travado por tx.
func (l *Ledger) apply(ctx context.Context, tx storage.Tx, book *catalog.Book, e entry) (*Transaction, error) {
	before := book.Stock
	after := before + e.delta
	if after < 0 {
		return nil, book.CheckStock(-e.delta)
	}

	if err := l.books.UpdateBookStock(ctx, tx, book.ID, after); err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:            uuid.New().String(),
		BookID:        book.ID,
		BookTitle:     book.Title,
		Type:          e.typ,
		Quantity:      e.delta,
		StockBefore:   before,
		StockAfter:    after,
		Reason:        e.reason,
		Note:          e.note,
		CreatedBy:     e.actor,
		ReferenceType: e.refType,
		ReferenceID:   e.refID,
		CreatedAt:     l.now(),
	}
	if err := l.repo.AppendTransaction(ctx, tx, t); err != nil {
		return nil, err
	}

	book.Stock = after
	return t, nil
}

// Recorded conta as transações do ledger já confirmadas. Quem grava via
// RecordOrderExport chama Recorded depois do próprio commit.
func (l *Ledger) Recorded(ctx context.Context, rows ...*Transaction) {
	for _, t := range rows {
		l.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", string(t.Type)),
			attribute.String("reference_type", string(t.ReferenceType)),
		))
	}
}

// lockBook carrega o livro com lock pessimista e rejeita livros removidos
func (l *Ledger) lockBook(ctx context.Context, tx storage.Tx, id string) (*catalog.Book, error) {
	book, err := l.books.GetBookForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if book.Deleted {
		return nil, catalog.ErrBookUnavailable
	}
	return book, nil
}

// manual runs a single-book ledger mutation in its own transaction. build
// returns the entry to apply, or nil for a no-op.
func (l *Ledger) manual(ctx context.Context, op, bookID string, build func(*catalog.Book) (*entry, error)) (*Transaction, error) {
	ctx, span := l.tracer.Start(ctx, "inventory."+op)
	defer span.End()
	span.SetAttributes(attribute.String("book_id", bookID))

	// 1. Inicia a transação
	tx, err := l.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 2. Obtém o livro com LOCK PESSIMISTA (SELECT FOR UPDATE)
	book, err := l.lockBook(ctx, tx, bookID)
	if err != nil {
		slog.InfoContext(ctx, "❌ "+op+" rejected", "book_id", bookID, "error", err)
		return nil, err
	}

	// 3. Regra de negócio
	e, err := build(book)
	if err != nil {
		slog.InfoContext(ctx, "❌ "+op+" rejected", "book_id", bookID, "error", err)
		return nil, err
	}
	if e == nil {
		slog.InfoContext(ctx, "ℹ️ "+op+" is a no-op", "book_id", bookID, "stock", book.Stock)
		return nil, nil
	}

	// 4. Escreve estoque e ledger na mesma transação
	t, err := l.apply(ctx, tx, book, *e)
	if err != nil {
		return nil, err
	}

	// 5. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", op, err)
	}
	l.Recorded(ctx, t)

	slog.InfoContext(ctx, "✅ "+op, "book_id", bookID, "quantity", t.Quantity,
		"stock_before", t.StockBefore, "stock_after", t.StockAfter)
	return t, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// ImportStock registra uma entrada de estoque
func (l *Ledger) ImportStock(ctx context.Context, req StockRequest) (*Transaction, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.manual(ctx, "import_stock", req.BookID, func(*catalog.Book) (*entry, error) {
		return &entry{
			typ:     TypeImport,
			delta:   req.Quantity,
			reason:  orDefault(req.Reason, "Stock import"),
			note:    req.Note,
			actor:   req.Actor,
			refType: RefManual,
		}, nil
	})
}

// ExportStock registra uma saída manual; rejects when stock < quantity
func (l *Ledger) ExportStock(ctx context.Context, req StockRequest) (*Transaction, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.manual(ctx, "export_stock", req.BookID, func(book *catalog.Book) (*entry, error) {
		if err := book.CheckStock(req.Quantity); err != nil {
			return nil, err
		}
		return &entry{
			typ:     TypeExport,
			delta:   -req.Quantity,
			reason:  orDefault(req.Reason, "Stock export"),
			note:    req.Note,
			actor:   req.Actor,
			refType: RefManual,
		}, nil
	})
}

// AdjustStock define o estoque absoluto. Sem diferença nada é gravado e a
// transação retornada é nil.
func (l *Ledger) AdjustStock(ctx context.Context, req AdjustRequest) (*Transaction, error) {
	if req.NewStock < 0 {
		return nil, ErrInvalidStock
	}
	return l.manual(ctx, "adjust_stock", req.BookID, func(book *catalog.Book) (*entry, error) {
		delta := req.NewStock - book.Stock
		if delta == 0 {
			return nil, nil
		}
		return &entry{
			typ:     TypeAdjustment,
			delta:   delta,
			reason:  orDefault(req.Reason, "Stock adjustment"),
			note:    req.Note,
			actor:   req.Actor,
			refType: RefManual,
		}, nil
	})
}

// RecordOrderExport debita o estoque de um item de pedido dentro da
// transação do pagamento. O livro deve estar travado por tx.
func (l *Ledger) RecordOrderExport(ctx context.Context, tx storage.Tx, book *catalog.Book, qty int, orderID, actor string) (*Transaction, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := book.CheckStock(qty); err != nil {
		return nil, err
	}
	return l.apply(ctx, tx, book, entry{
		typ:     TypeExport,
		delta:   -qty,
		reason:  "Order processed",
		note:    "Stock deducted for order #" + orderID,
		actor:   actor,
		refType: RefOrder,
		refID:   orderID,
	})
}

// History retorna uma página do histórico, mais recentes primeiro
func (l *Ledger) History(ctx context.Context, filter HistoryFilter) (Page, error) {
	if err := validateFilter(filter); err != nil {
		return Page{}, err
	}
	f := filter.normalized()

	items, total, err := l.repo.ListTransactions(ctx, Query{
		Filter: f,
		Limit:  f.Size,
		Offset: (f.Page - 1) * f.Size,
	})
	if err != nil {
		return Page{}, err
	}

	return Page{
		Items:      items,
		Page:       f.Page,
		Size:       f.Size,
		Total:      total,
		TotalPages: (total + f.Size - 1) / f.Size,
	}, nil
}

// ExportAll returns every matching transaction without paging.
func (l *Ledger) ExportAll(ctx context.Context, filter HistoryFilter) ([]Transaction, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	items, _, err := l.repo.ListTransactions(ctx, Query{Filter: filter})
	return items, err
}

func (l *Ledger) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return l.repo.GetTransaction(ctx, id)
}

func validateFilter(f HistoryFilter) error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: end of range is before its start", ErrInvalidFilter)
	}
	return nil
}
