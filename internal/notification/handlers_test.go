package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/orders"
)

func newRouter(h *Handler, withIdentity bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if withIdentity {
			ctx := auth.NewContext(c.Request.Context(), auth.Identity{UserID: "a1", Role: auth.RoleAdmin, SessionID: "s1"})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.GET("/notifications", h.List)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.POST("/notifications/read-all", h.MarkAllRead)
	r.POST("/notifications/:id/read", h.MarkRead)
	r.DELETE("/notifications/:id", h.Delete)
	return r
}

func TestHandler_ListAndMarkRead(t *testing.T) {
	c := NewCenter(nil, nil)
	c.NotifyNewOrder(context.Background(), orders.Order{ID: "o1", UserID: "u1"})
	r := newRouter(NewHandler(c), true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Notifications []Notification `json:"notifications"`
		Unread        int            `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, 1, body.Unread)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/notifications/"+body.Notifications[0].ID+"/read", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, c.Register("s1").UnreadCount())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_RequiresIdentity(t *testing.T) {
	r := newRouter(NewHandler(NewCenter(nil, nil)), false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
