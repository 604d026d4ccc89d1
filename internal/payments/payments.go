// Package payments wraps the payment provider behind a narrow contract:
// create a hosted checkout session, and verify + decode the asynchronous
// completion event it later delivers.
package payments

import (
	"context"
	"errors"
)

// ErrVerification marks a completion event whose signature or body could
// not be verified. This is permanent; the event must be dropped, never
// retried.
var ErrVerification = errors.New("event verification failed")

// Correlation metadata keys attached at session creation and echoed back
// byte-for-byte in the completion event.
const (
	MetaOrderID        = "order_id"
	MetaTrackingID     = "tracking_id"
	MetaSessionToken   = "session_id"
	MetaDeliverySpeed  = "delivery_speed"
	MetaCouponCode     = "coupon_code"
	MetaCouponDiscount = "coupon_discount"
)

type LineItem struct {
	Name        string
	Description string
	AmountCents int64
	Quantity    int64
}

type CreateSessionParams struct {
	CustomerEmail string
	Currency      string
	LineItems     []LineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string
	URL string
}

// CompletedCheckout is the decoded, verified completion event. AmountTotal
// is the provider's authoritative charge.
type CompletedCheckout struct {
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	Metadata        map[string]string
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, p CreateSessionParams) (*Session, error)
}

// Verifier authenticates a raw webhook delivery. A nil, nil return means
// the event verified but is of a type this service does not handle.
type Verifier interface {
	VerifyCompletionEvent(payload []byte, sigHeader string) (*CompletedCheckout, error)
}
