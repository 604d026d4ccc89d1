package coupon

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/songgift/checkout/internal/orders"
)

// Repo reads coupon records. Coupons are managed by an external admin
// surface; this service never writes them.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetByCode(ctx context.Context, code string) (*orders.Coupon, error) {
	var c orders.Coupon
	var dt string
	err := r.DB.QueryRow(ctx, `
		SELECT code, active, discount_type, discount_value, expiry_date
		FROM coupons WHERE lower(code) = lower($1)`, code).
		Scan(&c.Code, &c.Active, &dt, &c.DiscountValue, &c.ExpiryDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.DiscountType = orders.DiscountType(dt)
	return &c, nil
}
