package memory

import (
	"context"
	"sort"
	"time"

	"github.com/matheusmosca/bookverse/internal/coupon"
	"github.com/matheusmosca/bookverse/internal/storage"
)

func (s *Store) GetCouponByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := s.read(func(st *state) error {
		found, ok := st.coupons[code]
		if !ok {
			return coupon.ErrCouponNotFound
		}
		c = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ConsumeCoupon(_ context.Context, t storage.Tx, code string, now time.Time) (bool, error) {
	consumed := false
	err := s.write(t, func(st *state) error {
		c, ok := st.coupons[code]
		if !ok || !c.IsValid(now) {
			return nil
		}
		c.UsedCount++
		st.coupons[code] = c
		consumed = true
		return nil
	})
	return consumed, err
}

func (s *Store) CreateCoupon(_ context.Context, c *coupon.Coupon) error {
	return s.autocommit(func(st *state) error {
		if _, exists := st.coupons[c.Code]; exists {
			return coupon.ErrDuplicateCode
		}
		st.coupons[c.Code] = *c
		return nil
	})
}

func (s *Store) ListCoupons(_ context.Context) ([]coupon.Coupon, error) {
	var list []coupon.Coupon
	err := s.read(func(st *state) error {
		for _, c := range st.coupons {
			list = append(list, c)
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, err
}
