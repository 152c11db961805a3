package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/cart"
	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
)

// CheckoutRequest representa a requisição de checkout
type CheckoutRequest struct {
	Address string `json:"address"`
	Note    string `json:"note"`
}

// UpdateStatusRequest representa a alteração administrativa de status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler contém os handlers HTTP de pedidos
type Handler struct {
	workflow *Workflow
}

// NewHandler cria uma nova instância de Handler
func NewHandler(workflow *Workflow) *Handler {
	return &Handler{workflow: workflow}
}

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}

// Checkout cria o pedido a partir do carrinho da sessão e limpa o carrinho
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := auth.Session(c)
	order, err := h.workflow.PlaceOrder(c.Request.Context(), identity(c), PlaceOrderRequest{
		Cart:       sess.Cart,
		CouponCode: sess.CouponCode,
		Address:    req.Address,
		Note:       req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	sess.ClearCheckout()
	auth.Touch(c)
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Handler) ListOrders(c *gin.Context) {
	f := Filter{UserID: c.Query("user_id")}
	if raw := c.Query("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		f.Status = st
	}
	f.Page, _ = strconv.Atoi(c.Query("page"))
	f.Size, _ = strconv.Atoi(c.Query("size"))

	list, err := h.workflow.ListOrders(c.Request.Context(), identity(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.workflow.GetOrder(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ProcessPayment é compartilhado entre usuário e admin; a identidade decide
// quais pedidos são alcançáveis.
func (h *Handler) ProcessPayment(c *gin.Context) {
	order, err := h.workflow.ProcessPayment(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) Ship(c *gin.Context) {
	order, err := h.workflow.Ship(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.workflow.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ReportHandler contém os handlers do painel administrativo
type ReportHandler struct {
	reporter *Reporter
}

// NewReportHandler cria uma nova instância de ReportHandler
func NewReportHandler(reporter *Reporter) *ReportHandler {
	return &ReportHandler{reporter: reporter}
}

// SalesQuery aceita datas no formato 2006-01-02; to covers the whole day.
type SalesQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	d, err := h.reporter.Dashboard(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *ReportHandler) Sales(c *gin.Context) {
	var q SalesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.To != nil {
		end := q.To.Add(24*time.Hour - time.Nanosecond)
		q.To = &end
	}

	sales, err := h.reporter.Sales(c.Request.Context(), identity(c), q.From, q.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *ReportHandler) TopSellers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.reporter.TopSellers(c.Request.Context(), identity(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": list})
}

// Customers lista o resumo de pedidos por cliente
func (h *ReportHandler) Customers(c *gin.Context) {
	f := CustomerFilter{Search: c.Query("search")}
	if raw := c.Query("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		f.Status = st
	}

	list, err := h.reporter.Customers(c.Request.Context(), identity(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": list})
}

// StatusFor maps workflow errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrEmptyAddress), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, coupon.ErrCouponUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return catalog.StatusFor(err)
	}
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "❌ order request failed", "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var stockErr *catalog.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["book_id"] = stockErr.BookID
		body["available"] = stockErr.Available
	}
	c.JSON(status, body)
}
