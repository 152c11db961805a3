package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/bookverse/internal/orders"
)

var _ orders.ReportRepository = (*Store)(nil)

func paid(o orders.Order) bool {
	return slices.Contains(orders.PaidStatuses, o.Status)
}

func (s *Store) CountOrdersByStatus(_ context.Context) (map[orders.Status]int, error) {
	counts := map[orders.Status]int{}
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			counts[o.Status]++
		}
		return nil
	})
	return counts, err
}

func (s *Store) SalesBetween(_ context.Context, from, to time.Time) (orders.Sales, error) {
	sales := orders.Sales{From: from, To: to, Revenue: decimal.Zero}
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			if !paid(o) || o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
				continue
			}
			sales.Orders++
			sales.Revenue = sales.Revenue.Add(o.TotalAmount)
		}
		return nil
	})
	return sales, err
}

func (s *Store) TopSellers(_ context.Context, limit int) ([]orders.BookSales, error) {
	byBook := map[string]*orders.BookSales{}
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			if !paid(o) {
				continue
			}
			seen := map[string]bool{}
			for _, it := range o.Items {
				b, ok := byBook[it.BookID]
				if !ok {
					b = &orders.BookSales{BookID: it.BookID, Title: it.BookTitle, Revenue: decimal.Zero}
					byBook[it.BookID] = b
				}
				b.Quantity += it.Quantity
				b.Revenue = b.Revenue.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
				if !seen[it.BookID] {
					seen[it.BookID] = true
					b.Orders++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	list := make([]orders.BookSales, 0, len(byBook))
	for _, b := range byBook {
		list = append(list, *b)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Quantity == list[j].Quantity {
			return list[i].BookID < list[j].BookID
		}
		return list[i].Quantity > list[j].Quantity
	})
	return list[:min(limit, len(list))], nil
}

func (s *Store) CustomerSummaries(_ context.Context, f orders.CustomerFilter) ([]orders.CustomerSummary, error) {
	byUser := map[string]*orders.CustomerSummary{}
	search := strings.ToLower(f.Search)
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			u, ok := st.users[o.UserID]
			if !ok {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(u.Username), search) &&
				!strings.Contains(strings.ToLower(u.Email), search) &&
				!strings.Contains(strings.ToLower(u.FullName), search) {
				continue
			}
			c, ok := byUser[u.ID]
			if !ok {
				c = &orders.CustomerSummary{UserID: u.ID, Username: u.Username, FullName: u.FullName,
					Email: u.Email, TotalAmount: decimal.Zero}
				byUser[u.ID] = c
			}
			c.Orders++
			c.TotalAmount = c.TotalAmount.Add(o.TotalAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	list := make([]orders.CustomerSummary, 0, len(byUser))
	for _, c := range byUser {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool {
		if cmp := list[i].TotalAmount.Cmp(list[j].TotalAmount); cmp != 0 {
			return cmp > 0
		}
		return list[i].Username < list[j].Username
	})
	return list, nil
}
