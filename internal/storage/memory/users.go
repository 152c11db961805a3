package memory

import (
	"context"

	"github.com/matheusmosca/bookverse/internal/users"
)

func (s *Store) GetUser(_ context.Context, id string) (*users.User, error) {
	var u users.User
	err := s.read(func(st *state) error {
		found, ok := st.users[id]
		if !ok {
			return users.ErrUserNotFound
		}
		u = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*users.User, error) {
	var u *users.User
	err := s.read(func(st *state) error {
		for _, candidate := range st.users {
			if candidate.Username == username {
				c := candidate
				u = &c
				return nil
			}
		}
		return users.ErrUserNotFound
	})
	return u, err
}

func (s *Store) CreateUser(_ context.Context, u *users.User) error {
	return s.autocommit(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == u.Username {
				return users.ErrDuplicateUser
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}
