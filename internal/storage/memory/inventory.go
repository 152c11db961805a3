package memory

import (
	"context"
	"sort"

	"github.com/matheusmosca/bookverse/internal/inventory"
	"github.com/matheusmosca/bookverse/internal/storage"
)

func (s *Store) AppendTransaction(_ context.Context, t storage.Tx, it *inventory.Transaction) error {
	return s.write(t, func(st *state) error {
		st.transactions = append(st.transactions, *it)
		return nil
	})
}

func (s *Store) GetTransaction(_ context.Context, id string) (*inventory.Transaction, error) {
	var found *inventory.Transaction
	err := s.read(func(st *state) error {
		for i := range st.transactions {
			if st.transactions[i].ID == id {
				t := st.transactions[i]
				t.BookTitle = st.books[t.BookID].Title
				found = &t
				return nil
			}
		}
		return inventory.ErrTransactionNotFound
	})
	return found, err
}

func (s *Store) ListTransactions(_ context.Context, q inventory.Query) ([]inventory.Transaction, int, error) {
	var matches []inventory.Transaction
	err := s.read(func(st *state) error {
		f := q.Filter
		for _, t := range st.transactions {
			switch {
			case f.BookID != "" && t.BookID != f.BookID:
			case f.Type != "" && t.Type != f.Type:
			case f.From != nil && t.CreatedAt.Before(*f.From):
			case f.To != nil && t.CreatedAt.After(*f.To):
			default:
				t.BookTitle = st.books[t.BookID].Title
				matches = append(matches, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// newest first; insertion order breaks ties
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })

	total := len(matches)
	if q.Limit > 0 {
		if q.Offset >= total {
			return []inventory.Transaction{}, total, nil
		}
		end := min(q.Offset+q.Limit, total)
		matches = matches[q.Offset:end]
	}
	if matches == nil {
		matches = []inventory.Transaction{}
	}
	return matches, total, nil
}
