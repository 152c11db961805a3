package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/cart"
	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
	"github.com/matheusmosca/bookverse/internal/inventory"
	"github.com/matheusmosca/bookverse/internal/money"
	"github.com/matheusmosca/bookverse/internal/storage"
)

// BookLocker reloads books under a row lock.
type BookLocker interface {
	GetBookForUpdate(ctx context.Context, tx storage.Tx, id string) (*catalog.Book, error)
}

// CouponRedeemer evaluates a code and consumes one use of it.
type CouponRedeemer interface {
	Evaluate(ctx context.Context, code string, total decimal.Decimal) (coupon.Result, error)
	Consume(ctx context.Context, tx storage.Tx, code string) error
}

// StockLedger records order-driven stock exports.
type StockLedger interface {
	RecordOrderExport(ctx context.Context, tx storage.Tx, book *catalog.Book, qty int, orderID, actor string) (*inventory.Transaction, error)
	Recorded(ctx context.Context, rows ...*inventory.Transaction)
}

// Notifier receives order events. Calls must not block and their outcome
// never affects the workflow.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, o Order)
	NotifyPaymentRequest(ctx context.Context, o Order)
}

// Metrics agrupa os contadores do fluxo de pedidos
type Metrics struct {
	OrdersPlaced      metric.Int64Counter
	PaymentsProcessed metric.Int64Counter
	PaymentsRejected  metric.Int64Counter
}

// NewMetrics registra os contadores no meter informado
func NewMetrics(meter metric.Meter) (Metrics, error) {
	placed, err := meter.Int64Counter("orders_placed_total", metric.WithDescription("Orders placed"))
	if err != nil {
		return Metrics{}, err
	}
	processed, err := meter.Int64Counter("payments_processed_total", metric.WithDescription("Payments that moved an order to processing"))
	if err != nil {
		return Metrics{}, err
	}
	rejected, err := meter.Int64Counter("payments_rejected_total", metric.WithDescription("Payments rejected by stock, book or state checks"))
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{OrdersPlaced: placed, PaymentsProcessed: processed, PaymentsRejected: rejected}, nil
}

// PlaceOrderRequest carrega o estado da sessão necessário para o checkout
type PlaceOrderRequest struct {
	Cart       cart.Cart
	CouponCode string
	Address    string
	Note       string
}

// Workflow contém a máquina de estados dos pedidos
type Workflow struct {
	txm      storage.TxManager
	repo     Repository
	books    BookLocker
	coupons  CouponRedeemer
	ledger   StockLedger
	notifier Notifier
	tracer   trace.Tracer
	metrics  Metrics
	now      func() time.Time
}

// NewWorkflow cria uma nova instância de Workflow
func NewWorkflow(
	txm storage.TxManager,
	repo Repository,
	books BookLocker,
	coupons CouponRedeemer,
	ledger StockLedger,
	notifier Notifier,
	tracer trace.Tracer,
	metrics Metrics,
) *Workflow {
	return &Workflow{
		txm:      txm,
		repo:     repo,
		books:    books,
		coupons:  coupons,
		ledger:   ledger,
		notifier: notifier,
		tracer:   tracer,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithClock overrides the workflow's time source.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// lockBooks carrega e trava os livros em ordem de id, para que pagamentos
// concorrentes que compartilham livros não entrem em deadlock. Livros
// removidos só são recusados quando rejectDeleted é verdadeiro.
func (w *Workflow) lockBooks(ctx context.Context, tx storage.Tx, quantities map[string]int, rejectDeleted bool) (map[string]*catalog.Book, error) {
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	books := make(map[string]*catalog.Book, len(ids))
	for _, id := range ids {
		book, err := w.books.GetBookForUpdate(ctx, tx, id)
		if errors.Is(err, catalog.ErrBookNotFound) {
			return nil, fmt.Errorf("%w: %s", err, id)
		}
		if err != nil {
			return nil, err
		}
		if rejectDeleted && book.Deleted {
			return nil, fmt.Errorf("%w: %q", catalog.ErrBookUnavailable, book.Title)
		}
		if err := book.CheckStock(quantities[id]); err != nil {
			return nil, err
		}
		books[id] = book
	}
	return books, nil
}

// PlaceOrder converte o carrinho em um pedido pendente. Cada livro é
// recarregado sob lock; o estoque é conferido mas não debitado.
func (w *Workflow) PlaceOrder(ctx context.Context, id auth.Identity, req PlaceOrderRequest) (*Order, error) {
	ctx, span := w.tracer.Start(ctx, "orders.place_order")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", id.UserID))

	switch {
	case id.UserID == "":
		return nil, auth.ErrUnauthenticated
	case id.IsAdmin():
		return nil, ErrForbidden
	case req.Cart.IsEmpty():
		return nil, ErrEmptyCart
	case strings.TrimSpace(req.Address) == "":
		return nil, ErrEmptyAddress
	}

	quantities := make(map[string]int, len(req.Cart.Items))
	for _, it := range req.Cart.Items {
		if it.Quantity <= 0 {
			return nil, cart.ErrInvalidQuantity
		}
		quantities[it.Book.ID] += it.Quantity
	}

	// 1. Inicia a transação
	tx, err := w.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 2. Recarrega os livros com LOCK PESSIMISTA, nunca confiando no snapshot do carrinho
	books, err := w.lockBooks(ctx, tx, quantities, true)
	if err != nil {
		slog.InfoContext(ctx, "❌ order placement rejected", "user_id", id.UserID, "error", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// 3. Recalcula as linhas e o total a partir dos livros recarregados
	var fresh cart.Cart
	for _, it := range req.Cart.Items {
		fresh.Items = append(fresh.Items, cart.Item{Book: *books[it.Book.ID], Quantity: it.Quantity})
	}
	total := fresh.Total()

	// 4. Aplica e consome o cupom, se houver
	discount := decimal.Zero
	code := coupon.NormalizeCode(req.CouponCode)
	if code != "" {
		res, err := w.coupons.Evaluate(ctx, code, total)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			slog.InfoContext(ctx, "❌ order placement rejected: coupon", "code", code, "reason", res.Reason)
			return nil, fmt.Errorf("%w: %s", coupon.ErrCouponUnavailable, res.Message)
		}
		if err := w.coupons.Consume(ctx, tx, code); err != nil {
			return nil, err
		}
		discount = res.Discount
	}

	// 5. Persiste o pedido e os itens com o preço congelado
	now := w.now()
	order := &Order{
		ID:             uuid.New().String(),
		UserID:         id.UserID,
		TotalAmount:    money.Max0(money.Round(total.Sub(discount))),
		Status:         StatusPending,
		Address:        strings.TrimSpace(req.Address),
		Note:           strings.TrimSpace(req.Note),
		CouponCode:     code,
		CouponDiscount: discount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, line := range fresh.Items {
		order.Items = append(order.Items, Item{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			BookID:    line.Book.ID,
			BookTitle: line.Book.Title,
			Quantity:  line.Quantity,
			Price:     line.Book.DiscountPrice(),
		})
	}
	if err := w.repo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	// 6. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	w.metrics.OrdersPlaced.Add(ctx, 1)
	slog.InfoContext(ctx, "✅ order placed", "order_id", order.ID, "user_id", id.UserID,
		"total", order.TotalAmount.StringFixed(2), "items", len(order.Items))

	w.notifier.NotifyNewOrder(ctx, *order)
	return order, nil
}

// ProcessPayment move o pedido de pending para processing, debitando o
// estoque de todos os itens. Ou todos os itens são exportados e o status
// muda, ou nada é gravado.
func (w *Workflow) ProcessPayment(ctx context.Context, id auth.Identity, orderID string) (*Order, error) {
	ctx, span := w.tracer.Start(ctx, "orders.process_payment")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID), attribute.String("user_id", id.UserID))

	order, err := w.processPayment(ctx, id, orderID)
	if err != nil {
		if errors.Is(err, catalog.ErrInsufficientStock) || errors.Is(err, ErrInvalidTransition) ||
			catalog.IsLookupError(err) {
			w.metrics.PaymentsRejected.Add(ctx, 1)
		}
		span.SetStatus(codes.Error, err.Error())
		slog.InfoContext(ctx, "❌ payment processing failed", "order_id", orderID, "error", err)
		return nil, err
	}

	w.metrics.PaymentsProcessed.Add(ctx, 1)
	slog.InfoContext(ctx, "✅ payment processed", "order_id", order.ID, "actor", id.UserID)

	if !id.IsAdmin() {
		w.notifier.NotifyPaymentRequest(ctx, *order)
	}
	return order, nil
}

func (w *Workflow) processPayment(ctx context.Context, id auth.Identity, orderID string) (*Order, error) {
	if id.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}

	// 1. Inicia a transação
	tx, err := w.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 2. Trava o pedido e valida dono e estado
	order, err := w.repo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && order.UserID != id.UserID {
		return nil, ErrForbidden
	}
	if order.Status != StatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	// 3. Trava todos os livros e confirma o estoque antes de qualquer escrita
	quantities := make(map[string]int, len(order.Items))
	for _, it := range order.Items {
		quantities[it.BookID] += it.Quantity
	}
	books, err := w.lockBooks(ctx, tx, quantities, false)
	if err != nil {
		return nil, err
	}

	// 4. Debita o estoque e grava o ledger na mesma transação
	ids := make([]string, 0, len(books))
	for bookID := range books {
		ids = append(ids, bookID)
	}
	sort.Strings(ids)
	exported := make([]*inventory.Transaction, 0, len(ids))
	for _, bookID := range ids {
		row, err := w.ledger.RecordOrderExport(ctx, tx, books[bookID], quantities[bookID], order.ID, id.UserID)
		if err != nil {
			return nil, err
		}
		exported = append(exported, row)
	}

	// 5. Atualiza o status
	now := w.now()
	if err := w.repo.UpdateOrderStatus(ctx, tx, order.ID, StatusProcessing, now); err != nil {
		return nil, err
	}

	// 6. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	w.ledger.Recorded(ctx, exported...)

	order.Status = StatusProcessing
	order.UpdatedAt = now
	return order, nil
}

// Ship marca um pedido em processing como enviado, sem efeito no estoque.
func (w *Workflow) Ship(ctx context.Context, id auth.Identity, orderID string) (*Order, error) {
	ctx, span := w.tracer.Start(ctx, "orders.ship")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	if !id.IsAdmin() {
		return nil, ErrForbidden
	}

	tx, err := w.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := w.repo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, StatusShipped) {
		slog.InfoContext(ctx, "❌ ship rejected", "order_id", orderID, "status", order.Status)
		return nil, fmt.Errorf("%w: cannot ship an order that is %s", ErrInvalidTransition, order.Status)
	}

	now := w.now()
	if err := w.repo.UpdateOrderStatus(ctx, tx, order.ID, StatusShipped, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit shipping: %w", err)
	}

	order.Status = StatusShipped
	order.UpdatedAt = now
	slog.InfoContext(ctx, "🚚 order shipped", "order_id", order.ID)
	return order, nil
}

// UpdateStatus é a alteração administrativa de status. Toda transição aceita
// passa por ProcessPayment ou Ship, com a mesma contabilidade de estoque.
func (w *Workflow) UpdateStatus(ctx context.Context, id auth.Identity, orderID, status string) (*Order, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}

	target, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := w.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}

	switch {
	case order.Status == StatusPending && target == StatusProcessing:
		return w.ProcessPayment(ctx, id, orderID)
	case order.Status == StatusProcessing && target == StatusShipped:
		return w.Ship(ctx, id, orderID)
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
}

// GetOrder retorna o pedido para o dono ou para um administrador
func (w *Workflow) GetOrder(ctx context.Context, id auth.Identity, orderID string) (*Order, error) {
	order, err := w.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && order.UserID != id.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}

// ListOrders lists orders newest first. Non-admins only see their own.
func (w *Workflow) ListOrders(ctx context.Context, id auth.Identity, f Filter) (List, error) {
	if !id.IsAdmin() {
		f.UserID = id.UserID
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size <= 0 || f.Size > 100 {
		f.Size = 20
	}

	items, total, err := w.repo.ListOrders(ctx, f)
	if err != nil {
		return List{}, err
	}
	return List{
		Items:      items,
		Page:       f.Page,
		Size:       f.Size,
		Total:      total,
		TotalPages: (total + f.Size - 1) / f.Size,
	}, nil
}
