package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/bookverse/internal/session"
	"github.com/matheusmosca/bookverse/internal/users"
)

const (
	CookieName = "BOOKVERSE_SESSION"

	sessionKey = "bookverse.session"
	dirtyKey   = "bookverse.session.dirty"
)

// UserSource resolves users by id or username.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*users.User, error)
	FindByUsername(ctx context.Context, username string) (*users.User, error)
}

// Middleware resolve a sessão e a identidade de cada requisição
type Middleware struct {
	sessions session.Store
	users    UserSource
	ttl      time.Duration
}

// NewMiddleware cria uma nova instância de Middleware
func NewMiddleware(sessions session.Store, users UserSource, ttl time.Duration) *Middleware {
	return &Middleware{sessions: sessions, users: users, ttl: ttl}
}

// Handle loads or creates the session, resolves the user fresh from the
// store and saves the session after the handler when it was modified.
func (m *Middleware) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	sess, created, err := m.load(c)
	if err != nil {
		slog.ErrorContext(ctx, "❌ session lookup failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if sess.Authenticated() {
		u, err := m.users.GetUser(ctx, sess.UserID)
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			slog.WarnContext(ctx, "session bound to unknown user, dropping identity", "user_id", sess.UserID)
			sess.UserID = ""
			created = true
		case err != nil:
			slog.ErrorContext(ctx, "❌ user lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		default:
			ctx = NewContext(ctx, Identity{UserID: u.ID, Username: u.Username, Role: u.Role, SessionID: sess.ID})
			c.Request = c.Request.WithContext(ctx)
		}
	}

	c.Set(sessionKey, sess)
	if created {
		c.Set(dirtyKey, true)
	}

	c.Next()

	// o handler pode ter trocado a sessão
	sess = Session(c)
	if c.GetBool(dirtyKey) {
		if err := m.sessions.Save(ctx, sess); err != nil {
			slog.ErrorContext(ctx, "❌ session save failed", "session_id", sess.ID, "error", err)
		}
	}
}

func (m *Middleware) load(c *gin.Context) (*session.Session, bool, error) {
	if id, err := c.Cookie(CookieName); err == nil && id != "" {
		sess, err := m.sessions.Get(c.Request.Context(), id)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return nil, false, err
		}
	}

	sess := session.New()
	m.setCookie(c, sess.ID)
	return sess, true, nil
}

func (m *Middleware) setCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, int(m.ttl.Seconds()), "/", "", false, true)
}

// Session returns the request's session. Always non-nil behind Middleware.
func Session(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// Touch marks the session as modified so it is saved after the handler.
func Touch(c *gin.Context) {
	c.Set(dirtyKey, true)
}

// RequireUser admite apenas usuários autenticados que não são administradores
func RequireUser(c *gin.Context) {
	id, ok := FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
		return
	}
	if id.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrators cannot use the storefront checkout"})
		return
	}
	c.Next()
}

// RequireAdmin admite apenas administradores
func RequireAdmin(c *gin.Context) {
	id, ok := FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
		return
	}
	if !id.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
		return
	}
	c.Next()
}
