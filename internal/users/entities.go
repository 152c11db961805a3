package users

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidRole   = errors.New("invalid role")
	ErrDuplicateUser = errors.New("username already taken")
)

// Role is the single authorization capability carried by an identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normaliza o papel vindo do armazenamento ("admin", "ROLE_ADMIN", ...)
func ParseRole(s string) (Role, error) {
	r := strings.ToUpper(strings.TrimSpace(s))
	r = strings.TrimPrefix(r, "ROLE_")
	switch Role(r) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User representa um usuário da loja
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
