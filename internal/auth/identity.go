// Package auth normaliza a autenticação em uma única identidade canônica.
//
// Handlers e casos de uso só enxergam Identity; os papéis são checados uma
// única vez nos guards das rotas.
package auth

import (
	"context"
	"errors"

	"github.com/matheusmosca/bookverse/internal/users"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

type Role = users.Role

const (
	RoleUser  = users.RoleUser
	RoleAdmin = users.RoleAdmin
)

// Identity é o principal autenticado da requisição
type Identity struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	SessionID string `json:"-"`
}

func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

type identityKey struct{}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity resolved by the middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
