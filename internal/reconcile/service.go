// Package reconcile consumes payment completion events and transitions the
// matching pending order to paid exactly once, no matter how often or in
// what order the provider delivers the event.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/songgift/checkout/internal/handoff"
	kafkax "github.com/songgift/checkout/internal/kafka"
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/payments"
)

type Outcome string

const (
	OutcomePaid        Outcome = "paid"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeUnmatched   Outcome = "unmatched"
	OutcomeIgnored     Outcome = "ignored"
)

type Result struct {
	Outcome Outcome
	Order   *orders.Order
}

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*orders.Order, error)
	GetByPaymentSessionID(ctx context.Context, sessionID string) (*orders.Order, error)
	GetPendingBySessionToken(ctx context.Context, token string) (*orders.Order, error)
	MarkPaid(ctx context.Context, orderID string, u orders.PaidUpdate) (bool, error)
}

type HandoffStore interface {
	TakeOnce(ctx context.Context, token string) (*orders.IntakePayload, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders   OrderStore
	Handoff  HandoffStore
	Verifier payments.Verifier
	Producer Publisher
	Service  string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleEvent verifies and applies one webhook delivery. Errors are
// transient (store failures) except payments.ErrVerification, which is
// permanent; both are the caller's to map onto the provider response.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, sigHeader string) (*Result, error) {
	ev, err := s.Verifier.VerifyCompletionEvent(payload, sigHeader)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	ord, via, err := s.resolveOrder(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}
	if ord == nil {
		// Never create an order from a webhook alone: its intake detail
		// would be missing or unreliable. Log everything an operator
		// needs to reconcile by hand, then ack.
		log.Printf("reconcile: UNMATCHED completion event session=%s intent=%s amount=%d metadata=%v",
			ev.SessionID, ev.PaymentIntentID, ev.AmountTotal, ev.Metadata)
		return &Result{Outcome: OutcomeUnmatched}, nil
	}

	// Covers both a straight redelivery (already paid) and an order that
	// fulfillment tooling has moved past paid since.
	if !orders.CanTransition(ord.Status, orders.StatusPaid) {
		log.Printf("reconcile: order %s is %s, redelivery ignored", ord.ID, ord.Status)
		return &Result{Outcome: OutcomeAlreadyPaid, Order: ord}, nil
	}

	u := orders.PaidUpdate{
		AmountCents:      ev.AmountTotal, // provider total, never the client's
		Currency:         ev.Currency,
		PaymentSessionID: ev.SessionID,
		PaymentIntentID:  ev.PaymentIntentID,
		PaidAt:           s.now(),
	}
	if code := ev.Metadata[payments.MetaCouponCode]; code != "" {
		u.CouponCode = &code
	}
	if raw := ev.Metadata[payments.MetaCouponDiscount]; raw != "" {
		if d, err := strconv.ParseInt(raw, 10, 64); err == nil {
			u.CouponDiscountCents = &d
		}
	}
	u.Intake = s.recoverIntake(ctx, ord, ev)

	applied, err := s.Orders.MarkPaid(ctx, ord.ID, u)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !applied {
		// Lost the conditional write. Either a concurrent delivery won,
		// or fulfillment moved the order on already; both mean done.
		cur, err := s.Orders.GetByID(ctx, ord.ID)
		if err != nil {
			return nil, fmt.Errorf("re-read order %s: %w", ord.ID, err)
		}
		if cur.Status == orders.StatusPending {
			return nil, fmt.Errorf("order %s: conditional paid update did not apply", ord.ID)
		}
		log.Printf("reconcile: order %s already %s, concurrent delivery won", ord.ID, cur.Status)
		return &Result{Outcome: OutcomeAlreadyPaid, Order: cur}, nil
	}

	ord.Status = orders.StatusPaid
	ord.AmountPaidCents = u.AmountCents
	ord.Currency = u.Currency
	ord.PaymentSessionID = u.PaymentSessionID
	ord.PaymentIntentID = u.PaymentIntentID
	ord.PaidAt = &u.PaidAt
	if u.Intake != nil {
		ord.ApplyIntake(*u.Intake)
	}
	log.Printf("reconcile: order %s paid via %s, amount=%d %s", ord.ID, via, u.AmountCents, u.Currency)

	s.publishPaid(ord)
	return &Result{Outcome: OutcomePaid, Order: ord}, nil
}

type resolver struct {
	name string
	fn   func(ctx context.Context, ev *payments.CompletedCheckout) (*orders.Order, error)
}

// The fallback chain, most reliable first. Each tier returns (nil, nil)
// when it cannot match, and the first hit wins.
func (s *Service) resolvers() []resolver {
	return []resolver{
		{"metadata_order_id", s.byMetadataOrderID},
		{"payment_session_id", s.byPaymentSessionID},
		{"pending_session_token", s.byPendingSessionToken},
	}
}

func (s *Service) resolveOrder(ctx context.Context, ev *payments.CompletedCheckout) (*orders.Order, string, error) {
	for _, r := range s.resolvers() {
		ord, err := r.fn(ctx, ev)
		if err != nil {
			return nil, "", err
		}
		if ord != nil {
			return ord, r.name, nil
		}
	}
	return nil, "", nil
}

func (s *Service) byMetadataOrderID(ctx context.Context, ev *payments.CompletedCheckout) (*orders.Order, error) {
	id := ev.Metadata[payments.MetaOrderID]
	if id == "" {
		return nil, nil
	}
	return ignoreNotFound(s.Orders.GetByID(ctx, id))
}

func (s *Service) byPaymentSessionID(ctx context.Context, ev *payments.CompletedCheckout) (*orders.Order, error) {
	if ev.SessionID == "" {
		return nil, nil
	}
	return ignoreNotFound(s.Orders.GetByPaymentSessionID(ctx, ev.SessionID))
}

func (s *Service) byPendingSessionToken(ctx context.Context, ev *payments.CompletedCheckout) (*orders.Order, error) {
	token := ev.Metadata[payments.MetaSessionToken]
	if token == "" {
		return nil, nil
	}
	return ignoreNotFound(s.Orders.GetPendingBySessionToken(ctx, token))
}

func ignoreNotFound(o *orders.Order, err error) (*orders.Order, error) {
	if errors.Is(err, orders.ErrNotFound) {
		return nil, nil
	}
	return o, err
}

// recoverIntake re-attempts the handoff read for orders that were created
// without intake data, e.g. when the webhook outran checkout creation.
func (s *Service) recoverIntake(ctx context.Context, ord *orders.Order, ev *payments.CompletedCheckout) *orders.IntakePayload {
	if s.Handoff == nil || !ord.Intake.IsEmpty() {
		return nil
	}
	token := ev.Metadata[payments.MetaSessionToken]
	if token == "" {
		token = ord.SessionToken
	}
	if token == "" {
		return nil
	}
	p, err := s.Handoff.TakeOnce(ctx, token)
	if err != nil {
		if !errors.Is(err, handoff.ErrNotFound) {
			log.Printf("reconcile: handoff recovery for %s failed: %v", token, err)
		}
		return nil
	}
	log.Printf("reconcile: recovered intake for order %s from handoff %s", ord.ID, token)
	return p
}

func (s *Service) publishPaid(o *orders.Order) {
	if s.Producer == nil {
		return
	}
	paidAt := s.now()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPaid,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID:          o.ID,
			TrackingID:       o.TrackingID,
			AmountPaidCents:  o.AmountPaidCents,
			Currency:         o.Currency,
			PaymentSessionID: o.PaymentSessionID,
			PaymentIntentID:  o.PaymentIntentID,
			PaidAt:           paidAt,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPaid)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
