package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/bookverse/internal/session"
	"github.com/matheusmosca/bookverse/internal/users"
)

// LoginRequest representa a requisição de login. As credenciais são
// verificadas antes; aqui só se vincula a sessão ao usuário.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

// Handler contém os handlers HTTP de autenticação
type Handler struct {
	middleware *Middleware
	onLogout   []func(sessionID string)
}

// NewHandler cria uma nova instância de Handler
func NewHandler(m *Middleware, onLogout ...func(sessionID string)) *Handler {
	return &Handler{middleware: m, onLogout: onLogout}
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	u, err := h.middleware.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, users.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "❌ login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Login emite uma nova sessão; o carrinho e o cupom da sessão anônima são mantidos
	old := Session(c)
	sess := session.New()
	sess.UserID = u.ID
	sess.Cart = old.Cart
	sess.CouponCode = old.CouponCode

	if err := h.middleware.sessions.Delete(ctx, old.ID); err != nil {
		slog.ErrorContext(ctx, "❌ login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	for _, fn := range h.onLogout {
		fn(old.ID)
	}

	c.Set(sessionKey, sess)
	h.middleware.setCookie(c, sess.ID)
	Touch(c)

	slog.InfoContext(ctx, "🔑 user logged in", "user_id", u.ID, "role", u.Role)
	c.JSON(http.StatusOK, gin.H{"identity": Identity{UserID: u.ID, Username: u.Username, Role: u.Role}})
}

func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	sess := Session(c)

	if err := h.middleware.sessions.Delete(ctx, sess.ID); err != nil {
		slog.ErrorContext(ctx, "❌ logout failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	for _, fn := range h.onLogout {
		fn(sess.ID)
	}

	c.Set(dirtyKey, false)
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

// Me returns the current identity.
func (h *Handler) Me(c *gin.Context) {
	id, ok := FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id})
}
