package checkout

import (
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/payments"
)

type Pricing struct {
	BaseCents    int64
	ExpressCents int64
	Currency     string
}

var DefaultPricing = Pricing{
	BaseCents:    7900, // $79.00
	ExpressCents: 3900, // $39.00 upgrade
	Currency:     "usd",
}

func (p Pricing) Total(speed orders.DeliverySpeed) int64 {
	if speed == orders.DeliveryExpress {
		return p.BaseCents + p.ExpressCents
	}
	return p.BaseCents
}

// LineItems builds the provider line items with the coupon discount folded
// into the component amounts. The base item absorbs it first, then the
// express upgrade. The provider never sees a negative line item.
func (p Pricing) LineItems(speed orders.DeliverySpeed, discountCents int64) []payments.LineItem {
	base := p.BaseCents
	express := int64(0)
	if speed == orders.DeliveryExpress {
		express = p.ExpressCents
	}

	cut := discountCents
	if cut > base {
		cut = base
	}
	base -= cut
	discountCents -= cut
	if discountCents > express {
		discountCents = express
	}
	express -= discountCents

	items := make([]payments.LineItem, 0, 2)
	if base > 0 {
		items = append(items, payments.LineItem{
			Name:        "Custom Song",
			Description: "Personalized custom song created by professional musicians",
			AmountCents: base,
			Quantity:    1,
		})
	}
	if express > 0 {
		items = append(items, payments.LineItem{
			Name:        "Express Delivery (within 24 hours)",
			Description: "Express delivery upgrade",
			AmountCents: express,
			Quantity:    1,
		})
	}
	return items
}
