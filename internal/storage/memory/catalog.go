package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/storage"
)

func (s *Store) GetBook(_ context.Context, id string) (*catalog.Book, error) {
	var b catalog.Book
	err := s.read(func(st *state) error {
		found, ok := st.books[id]
		if !ok {
			return catalog.ErrBookNotFound
		}
		b = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetBookForUpdate(ctx context.Context, t storage.Tx, id string) (*catalog.Book, error) {
	if err := s.check(t); err != nil {
		return nil, err
	}
	return s.GetBook(ctx, id)
}

func (s *Store) UpdateBookStock(_ context.Context, t storage.Tx, id string, stock int) error {
	return s.write(t, func(st *state) error {
		b, ok := st.books[id]
		if !ok {
			return catalog.ErrBookNotFound
		}
		if stock < 0 {
			return &catalog.InsufficientStockError{BookID: id, Title: b.Title, Available: b.Stock, Requested: b.Stock - stock}
		}
		b.Stock = stock
		b.UpdatedAt = time.Now()
		st.books[id] = b
		return nil
	})
}

func (s *Store) CreateBook(_ context.Context, b *catalog.Book) error {
	return s.autocommit(func(st *state) error {
		st.books[b.ID] = *b
		return nil
	})
}

func (s *Store) SoftDeleteBook(_ context.Context, id string) error {
	return s.autocommit(func(st *state) error {
		b, ok := st.books[id]
		if !ok {
			return catalog.ErrBookNotFound
		}
		b.Deleted = true
		b.UpdatedAt = time.Now()
		st.books[id] = b
		return nil
	})
}

func (s *Store) ListBooks(_ context.Context, f catalog.BookFilter) ([]catalog.Book, error) {
	var list []catalog.Book
	err := s.read(func(st *state) error {
		title := strings.ToLower(f.Title)
		for _, b := range st.books {
			switch {
			case b.Deleted && !f.IncludeDeleted:
			case title != "" && !strings.Contains(strings.ToLower(b.Title), title):
			case f.Stock.Min != nil && b.Stock < *f.Stock.Min:
			case f.Stock.Max != nil && b.Stock > *f.Stock.Max:
			default:
				list = append(list, b)
			}
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	return list, err
}
