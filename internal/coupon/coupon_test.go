package coupon

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/songgift/checkout/internal/orders"
)

type stubStore struct {
	coupons map[string]*orders.Coupon
}

func (s *stubStore) GetByCode(_ context.Context, code string) (*orders.Coupon, error) {
	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		coupon   orders.Coupon
		amount   int64
		discount int64
		final    int64
	}{
		{
			name:     "percentage",
			coupon:   orders.Coupon{Code: "SAVE10", DiscountType: orders.DiscountPercentage, DiscountValue: 10},
			amount:   7900,
			discount: 790,
			final:    7110,
		},
		{
			name:     "percentage rounds",
			coupon:   orders.Coupon{Code: "SAVE15", DiscountType: orders.DiscountPercentage, DiscountValue: 15},
			amount:   7900,
			discount: 1185,
			final:    6715,
		},
		{
			name:     "fixed",
			coupon:   orders.Coupon{Code: "FLAT20", DiscountType: orders.DiscountFixed, DiscountValue: 2000},
			amount:   7900,
			discount: 2000,
			final:    5900,
		},
		{
			name:     "fixed larger than charge clamps to floor",
			coupon:   orders.Coupon{Code: "FLAT9000", DiscountType: orders.DiscountFixed, DiscountValue: 9000},
			amount:   7900,
			discount: 7800,
			final:    100,
		},
		{
			name:     "hundred percent clamps to floor",
			coupon:   orders.Coupon{Code: "FREE", DiscountType: orders.DiscountPercentage, DiscountValue: 100},
			amount:   11800,
			discount: 11700,
			final:    100,
		},
		{
			name:     "zero value",
			coupon:   orders.Coupon{Code: "NOOP", DiscountType: orders.DiscountFixed, DiscountValue: 0},
			amount:   7900,
			discount: 0,
			final:    7900,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, final := Apply(&tt.coupon, tt.amount)
			require.Equal(t, tt.discount, discount)
			require.Equal(t, tt.final, final)
			require.GreaterOrEqual(t, discount, int64(0))
			require.LessOrEqual(t, discount, tt.amount-MinChargeCents)
			require.Equal(t, tt.amount-discount, final)
		})
	}
}

func TestValidate(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	store := &stubStore{coupons: map[string]*orders.Coupon{
		"SAVE10":  {Code: "SAVE10", Active: true, DiscountType: orders.DiscountPercentage, DiscountValue: 10, ExpiryDate: &future},
		"OLD":     {Code: "OLD", Active: true, DiscountType: orders.DiscountFixed, DiscountValue: 500, ExpiryDate: &expired},
		"DORMANT": {Code: "DORMANT", Active: false, DiscountType: orders.DiscountFixed, DiscountValue: 500},
		"FOREVER": {Code: "FOREVER", Active: true, DiscountType: orders.DiscountFixed, DiscountValue: 500},
	}}
	v := NewValidator(store)
	ctx := context.Background()

	t.Run("valid percentage", func(t *testing.T) {
		res, err := v.Validate(ctx, "SAVE10", 7900)
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, "SAVE10", res.CouponCode)
		require.Equal(t, int64(790), res.DiscountAmountCents)
		require.Equal(t, int64(7110), res.FinalAmountCents)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		res, err := v.Validate(ctx, "save10", 7900)
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, "SAVE10", res.CouponCode)
	})

	t.Run("unknown code", func(t *testing.T) {
		res, err := v.Validate(ctx, "NOPE", 7900)
		require.NoError(t, err)
		require.False(t, res.Valid)
	})

	t.Run("expired", func(t *testing.T) {
		res, err := v.Validate(ctx, "OLD", 7900)
		require.NoError(t, err)
		require.False(t, res.Valid)
	})

	t.Run("inactive", func(t *testing.T) {
		res, err := v.Validate(ctx, "DORMANT", 7900)
		require.NoError(t, err)
		require.False(t, res.Valid)
	})

	t.Run("no expiry date means no expiry", func(t *testing.T) {
		res, err := v.Validate(ctx, "FOREVER", 7900)
		require.NoError(t, err)
		require.True(t, res.Valid)
	})
}
