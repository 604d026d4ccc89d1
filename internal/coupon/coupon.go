// Package coupon validates discount codes against persisted coupon
// records. The same validation runs twice per checkout: once advisory when
// the user applies a code, and once authoritative inside order creation.
// Client-declared discounts are never trusted.
package coupon

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/songgift/checkout/internal/orders"
)

// MinChargeCents is the smallest charge the payment provider accepts.
const MinChargeCents int64 = 100

var ErrNotFound = errors.New("coupon not found")

type Result struct {
	Valid               bool   `json:"valid"`
	CouponCode          string `json:"coupon_code,omitempty"`
	DiscountAmountCents int64  `json:"discount_amount_cents,omitempty"`
	FinalAmountCents    int64  `json:"final_amount_cents,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

type Store interface {
	GetByCode(ctx context.Context, code string) (*orders.Coupon, error)
}

type Validator struct {
	Store Store
	Now   func() time.Time
}

func NewValidator(store Store) *Validator {
	return &Validator{Store: store, Now: time.Now}
}

// Validate decides whether code applies to amountCents. Invalid codes are
// a decision, not an error; errors mean the store failed.
func (v *Validator) Validate(ctx context.Context, code string, amountCents int64) (*Result, error) {
	c, err := v.Store.GetByCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, ErrNotFound) {
		return &Result{Valid: false, Reason: "invalid coupon code"}, nil
	}
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return &Result{Valid: false, Reason: "coupon is no longer active"}, nil
	}
	if c.ExpiryDate != nil && c.ExpiryDate.Before(v.Now()) {
		return &Result{Valid: false, Reason: "coupon has expired"}, nil
	}

	discount, final := Apply(c, amountCents)
	return &Result{
		Valid:               true,
		CouponCode:          c.Code,
		DiscountAmountCents: discount,
		FinalAmountCents:    final,
	}, nil
}

// Apply computes the discount for a valid coupon, clamped so the final
// charge never drops below the provider minimum and never goes negative.
func Apply(c *orders.Coupon, amountCents int64) (discount, final int64) {
	switch c.DiscountType {
	case orders.DiscountPercentage:
		discount = int64(math.Round(float64(amountCents) * float64(c.DiscountValue) / 100))
	case orders.DiscountFixed:
		discount = c.DiscountValue
	}
	if discount > amountCents-MinChargeCents {
		discount = amountCents - MinChargeCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount, amountCents - discount
}
