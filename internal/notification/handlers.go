package notification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/bookverse/internal/auth"
)

// Handler contém os handlers HTTP das notificações de administradores
type Handler struct {
	center *Center
}

// NewHandler cria uma nova instância de Handler
func NewHandler(center *Center) *Handler {
	return &Handler{center: center}
}

// inbox returns the caller's inbox. Routes are mounted behind RequireAdmin.
func (h *Handler) inbox(c *gin.Context) (*Inbox, bool) {
	id, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
		return nil, false
	}
	return h.center.Register(id.SessionID), true
}

func (h *Handler) List(c *gin.Context) {
	in, ok := h.inbox(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": in.List(), "unread": in.UnreadCount()})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	in, ok := h.inbox(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": in.UnreadCount()})
}

func (h *Handler) MarkRead(c *gin.Context) {
	in, ok := h.inbox(c)
	if !ok {
		return
	}
	if err := in.MarkRead(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	in, ok := h.inbox(c)
	if !ok {
		return
	}
	in.MarkAllRead()
	c.Status(http.StatusNoContent)
}

func (h *Handler) Delete(c *gin.Context) {
	in, ok := h.inbox(c)
	if !ok {
		return
	}
	if err := in.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
