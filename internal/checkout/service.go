// Package checkout orchestrates order creation: resolve the handed-off
// intake, price the order, validate the coupon authoritatively, persist a
// pending order, then ask the payment provider for a hosted session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/songgift/checkout/internal/kafka"
	"github.com/songgift/checkout/internal/coupon"
	"github.com/songgift/checkout/internal/handoff"
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/payments"
)

var ErrInvalidInput = errors.New("invalid input")

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type OrderStore interface {
	Insert(ctx context.Context, o *orders.Order) error
	SetPaymentSession(ctx context.Context, orderID, sessionID string) error
}

type HandoffStore interface {
	TakeOnce(ctx context.Context, token string) (*orders.IntakePayload, error)
}

type CouponValidator interface {
	Validate(ctx context.Context, code string, amountCents int64) (*coupon.Result, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders   OrderStore
	Handoff  HandoffStore
	Coupons  CouponValidator
	Provider payments.Provider
	Producer Publisher
	Pricing  Pricing
	BaseURL  string
	Service  string
}

type CreateParams struct {
	SessionToken  string
	Email         string
	DeliverySpeed string
	CouponCode    string
	TraceID       string
}

type CreateResult struct {
	RedirectURL string
	OrderID     string
	TrackingID  string
	TotalCents  int64
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if p.SessionToken == "" {
		return nil, fmt.Errorf("%w: missing sessionToken", ErrInvalidInput)
	}
	if p.Email == "" || !emailRe.MatchString(p.Email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	speed, ok := orders.ParseDeliverySpeed(p.DeliverySpeed)
	if !ok {
		return nil, fmt.Errorf("%w: deliverySpeed must be standard or express", ErrInvalidInput)
	}

	// Authoritative coupon resolution against the provider-required total.
	// Whatever the client showed the user is advisory only.
	total := s.Pricing.Total(speed)
	var couponCode string
	var discount int64
	if p.CouponCode != "" {
		res, err := s.Coupons.Validate(ctx, p.CouponCode, total)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if res.Valid {
			couponCode = res.CouponCode
			discount = res.DiscountAmountCents
		} else {
			log.Printf("checkout: coupon %q rejected (%s), proceeding without discount", p.CouponCode, res.Reason)
		}
	}
	final := total - discount

	// A missing or expired handoff entry degrades to an empty payload;
	// the order is still financially valid.
	intake := orders.IntakePayload{}
	if got, err := s.Handoff.TakeOnce(ctx, p.SessionToken); err == nil {
		intake = *got
	} else if !errors.Is(err, handoff.ErrNotFound) {
		log.Printf("checkout: handoff read for %s failed: %v", p.SessionToken, err)
	}

	now := time.Now().UTC()
	o := &orders.Order{
		TrackingID:          orders.NewTrackingID(),
		SessionToken:        p.SessionToken,
		AmountPaidCents:     final, // provisional until the provider confirms
		Currency:            s.Pricing.Currency,
		DeliverySpeed:       speed,
		ExpectedDeliveryAt:  orders.ExpectedDelivery(speed, now),
		CouponCode:          couponCode,
		CouponDiscountCents: discount,
		CustomerEmail:       p.Email,
	}
	o.ApplyIntake(intake)
	if o.CustomerEmail == "" {
		o.CustomerEmail = p.Email
	}

	// Persist before contacting the provider: a failed provider call
	// leaves an inspectable pending order, and a failed insert means no
	// payment session can ever exist without a matching order.
	if err := s.Orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	sess, err := s.Provider.CreateCheckoutSession(ctx, payments.CreateSessionParams{
		CustomerEmail: p.Email,
		Currency:      s.Pricing.Currency,
		LineItems:     s.Pricing.LineItems(speed, discount),
		Metadata: map[string]string{
			payments.MetaOrderID:        o.ID,
			payments.MetaTrackingID:     o.TrackingID,
			payments.MetaSessionToken:   p.SessionToken,
			payments.MetaDeliverySpeed:  string(speed),
			payments.MetaCouponCode:     couponCode,
			payments.MetaCouponDiscount: strconv.FormatInt(discount, 10),
		},
		SuccessURL: s.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.BaseURL + "/checkout?canceled=1",
	})
	if err != nil {
		// The pending order stays queryable for manual reconciliation.
		return nil, fmt.Errorf("payment session for order %s: %w", o.ID, err)
	}

	// The redirect URL is already known, so a failed link is operational
	// noise, not a checkout failure; the webhook fallback chain covers it.
	if err := s.Orders.SetPaymentSession(ctx, o.ID, sess.ID); err != nil {
		log.Printf("checkout: link payment session %s to order %s: %v", sess.ID, o.ID, err)
	}

	s.publishCreated(o, p.TraceID)

	return &CreateResult{
		RedirectURL: sess.URL,
		OrderID:     o.ID,
		TrackingID:  o.TrackingID,
		TotalCents:  final,
	}, nil
}

func (s *Service) publishCreated(o *orders.Order, traceID string) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:             o.ID,
			TrackingID:          o.TrackingID,
			SessionToken:        o.SessionToken,
			DeliverySpeed:       string(o.DeliverySpeed),
			TotalCents:          o.AmountPaidCents,
			Currency:            o.Currency,
			CouponCode:          o.CouponCode,
			CouponDiscountCents: o.CouponDiscountCents,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
