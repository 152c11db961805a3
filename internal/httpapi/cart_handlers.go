package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/cart"
	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
)

// AddItemRequest representa a inclusão de um livro no carrinho
type AddItemRequest struct {
	BookID   string `json:"book_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// UpdateItemRequest sobrescreve a quantidade de uma linha
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// ApplyCouponRequest seleciona um cupom para a sessão
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// CartHandler contém os handlers HTTP do carrinho da sessão
type CartHandler struct {
	service *cart.Service
}

// NewCartHandler cria uma nova instância de CartHandler
func NewCartHandler(service *cart.Service) *CartHandler {
	return &CartHandler{service: service}
}

// render responds with the session cart and its priced totals.
func (h *CartHandler) render(c *gin.Context, status int) {
	sess := auth.Session(c)
	totals, err := h.service.Totals(c.Request.Context(), &sess.Cart, sess.CouponCode)
	if err != nil {
		respondCartError(c, err)
		return
	}
	items := sess.Cart.Items
	if items == nil {
		items = []cart.Item{}
	}
	c.JSON(status, gin.H{"items": items, "totals": totals})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	h.render(c, http.StatusOK)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	auth.Session(c).ClearCheckout()
	auth.Touch(c)
	h.render(c, http.StatusOK)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := auth.Session(c)
	if err := h.service.AddToCart(c.Request.Context(), &sess.Cart, req.BookID, req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}
	auth.Touch(c)
	h.render(c, http.StatusOK)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := auth.Session(c)
	if err := h.service.UpdateItem(c.Request.Context(), &sess.Cart, c.Param("bookID"), req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}
	auth.Touch(c)
	h.render(c, http.StatusOK)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	auth.Session(c).Cart.Remove(c.Param("bookID"))
	auth.Touch(c)
	h.render(c, http.StatusOK)
}

// ApplyCoupon guarda o código normalizado apenas quando o cupom é aceito
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := auth.Session(c)
	res, err := h.service.ApplyCoupon(c.Request.Context(), &sess.Cart, req.Code)
	if err != nil {
		respondCartError(c, err)
		return
	}
	if !res.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Message, "reason": res.Reason})
		return
	}

	sess.CouponCode = coupon.NormalizeCode(req.Code)
	auth.Touch(c)
	c.JSON(http.StatusOK, gin.H{"message": res.Message, "discount": res.Discount})
}

func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	auth.Session(c).CouponCode = ""
	auth.Touch(c)
	h.render(c, http.StatusOK)
}

func respondCartError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, cart.ErrItemNotInCart):
		status = http.StatusNotFound
	default:
		status = catalog.StatusFor(err)
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "❌ cart request failed", "error", err)
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
