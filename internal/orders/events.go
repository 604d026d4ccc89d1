package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderPaid    = "OrderPaid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID             string `json:"order_id"`
	TrackingID          string `json:"tracking_id"`
	SessionToken        string `json:"session_token"`
	DeliverySpeed       string `json:"delivery_speed"`
	TotalCents          int64  `json:"total_cents"`
	Currency            string `json:"currency"`
	CouponCode          string `json:"coupon_code,omitempty"`
	CouponDiscountCents int64  `json:"coupon_discount_cents,omitempty"`
}

type OrderPaidPayload struct {
	OrderID          string    `json:"order_id"`
	TrackingID       string    `json:"tracking_id"`
	AmountPaidCents  int64     `json:"amount_paid_cents"`
	Currency         string    `json:"currency"`
	PaymentSessionID string    `json:"payment_session_id"`
	PaymentIntentID  string    `json:"payment_intent_id"`
	PaidAt           time.Time `json:"paid_at"`
}
