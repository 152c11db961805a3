package memory

import (
	"context"
	"sort"
	"time"

	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/storage"
)

func copyOrder(o orders.Order) *orders.Order {
	o.Items = append([]orders.Item{}, o.Items...)
	return &o
}

func (s *Store) CreateOrder(_ context.Context, t storage.Tx, o *orders.Order) error {
	return s.write(t, func(st *state) error {
		st.orders[o.ID] = *copyOrder(*o)
		return nil
	})
}

func (s *Store) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	var found *orders.Order
	err := s.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return orders.ErrOrderNotFound
		}
		found = copyOrder(o)
		return nil
	})
	return found, err
}

func (s *Store) GetOrderForUpdate(ctx context.Context, t storage.Tx, id string) (*orders.Order, error) {
	if err := s.check(t); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) UpdateOrderStatus(_ context.Context, t storage.Tx, id string, status orders.Status, at time.Time) error {
	return s.write(t, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return orders.ErrOrderNotFound
		}
		o.Status = status
		o.UpdatedAt = at
		st.orders[id] = o
		return nil
	})
}

func (s *Store) ListOrders(_ context.Context, f orders.Filter) ([]orders.Order, int, error) {
	var list []orders.Order
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			if f.UserID != "" && o.UserID != f.UserID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			o.Items = nil
			list = append(list, o)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	total := len(list)
	if f.Size <= 0 {
		return list, total, nil
	}
	start := min((f.Page-1)*f.Size, total)
	end := min(start+f.Size, total)
	return append([]orders.Order{}, list[start:end]...), total, nil
}

func (s *Store) ListPendingOrdersBefore(_ context.Context, cutoff time.Time) ([]orders.Order, error) {
	var list []orders.Order
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			if o.Status == orders.StatusPending && o.CreatedAt.Before(cutoff) {
				list = append(list, *copyOrder(o))
			}
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, err
}

func (s *Store) DeleteStaleOrder(_ context.Context, t storage.Tx, id string, cutoff time.Time) (bool, error) {
	deleted := false
	err := s.write(t, func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.Status != orders.StatusPending || !o.CreatedAt.Before(cutoff) {
			return nil
		}
		delete(st.orders, id)
		deleted = true
		return nil
	})
	return deleted, err
}
