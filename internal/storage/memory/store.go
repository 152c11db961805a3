// Package memory implementa todos os repositórios em memória, com transações
// serializadas e rollback por snapshot.
//
// Uma transação segura txMu do BeginTx até o Commit ou Rollback, então só uma
// roda por vez. Escritas sem Tx também pegam txMu. Leituras sem Tx pegam só mu
// e nunca esperam uma transação aberta; elas veem as escritas ainda não
// confirmadas.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
	"github.com/matheusmosca/bookverse/internal/inventory"
	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/storage"
	"github.com/matheusmosca/bookverse/internal/users"
)

var ErrForeignTx = errors.New("transaction does not belong to this store")

var (
	_ storage.TxManager    = (*Store)(nil)
	_ catalog.Repository   = (*Store)(nil)
	_ users.Repository     = (*Store)(nil)
	_ coupon.Repository    = (*Store)(nil)
	_ inventory.Repository = (*Store)(nil)
	_ orders.Repository    = (*Store)(nil)
)

type state struct {
	books        map[string]catalog.Book
	users        map[string]users.User
	coupons      map[string]coupon.Coupon
	orders       map[string]orders.Order
	transactions []inventory.Transaction
}

func newState() *state {
	return &state{
		books:   make(map[string]catalog.Book),
		users:   make(map[string]users.User),
		coupons: make(map[string]coupon.Coupon),
		orders:  make(map[string]orders.Order),
	}
}

func (s *state) clone() *state {
	c := &state{
		books:        make(map[string]catalog.Book, len(s.books)),
		users:        make(map[string]users.User, len(s.users)),
		coupons:      make(map[string]coupon.Coupon, len(s.coupons)),
		orders:       make(map[string]orders.Order, len(s.orders)),
		transactions: append([]inventory.Transaction(nil), s.transactions...),
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]orders.Item(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

// Store implementa storage.TxManager e os repositórios de catalog, users,
// coupon, inventory e orders.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

// New cria uma nova instância de Store
func New() *Store {
	return &Store{data: newState()}
}

type tx struct {
	store    *Store
	snapshot *state
	done     bool
}

// BeginTx bloqueia até que nenhuma outra transação esteja aberta
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()

	s.mu.RLock()
	snap := s.data.clone()
	s.mu.RUnlock()

	return &tx{store: s, snapshot: snap}, nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

// Rollback restores the snapshot. Calling it after Commit is a no-op.
func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	t.store.data = t.snapshot
	t.store.mu.Unlock()

	t.store.txMu.Unlock()
	return nil
}

func (s *Store) check(t storage.Tx) error {
	mt, ok := t.(*tx)
	if !ok || mt.store != s || mt.done {
		return ErrForeignTx
	}
	return nil
}

// autocommit runs fn as its own transaction.
func (s *Store) autocommit(fn func(*state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// write runs fn against the live state inside the caller's transaction.
func (s *Store) write(t storage.Tx, fn func(*state) error) error {
	if err := s.check(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}
