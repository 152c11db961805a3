package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contém a lógica de negócio de usuários
type Service struct {
	repo Repository
}

// NewService cria uma nova instância de Service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
}

// Register cria um usuário com o papel informado
func (s *Service) Register(ctx context.Context, username, fullName, email string, role Role) (*User, error) {
	u := &User{
		ID:        uuid.New().String(),
		Username:  strings.TrimSpace(username),
		FullName:  fullName,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin cria o administrador inicial caso ainda não exista
func (s *Service) EnsureAdmin(ctx context.Context, username string) (*User, error) {
	u, err := s.FindByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	u, err = s.Register(ctx, username, "Administrator", "", RoleAdmin)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "👤 bootstrap admin created", "user_id", u.ID, "username", u.Username)
	return u, nil
}
