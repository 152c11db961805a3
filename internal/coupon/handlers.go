package coupon

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler contém os handlers HTTP de cupons
type Handler struct {
	service *Service
}

// NewHandler cria uma nova instância de Handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidCoupon):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		slog.ErrorContext(c.Request.Context(), "❌ create coupon failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusCreated, gin.H{"coupon": created})
	}
}

func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.service.List(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "❌ list coupons failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// ListAvailable lista cupons válidos para o cliente
func (h *Handler) ListAvailable(c *gin.Context) {
	coupons, err := h.service.ListValid(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "❌ list valid coupons failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}
