package payments

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, cp CreateSessionParams) (*Session, error) {
	currency := cp.Currency
	if currency == "" {
		currency = "usd"
	}
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(cp.LineItems))
	for _, li := range cp.LineItems {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(li.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(li.Name),
					Description: stripe.String(li.Description),
				},
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		CustomerEmail:      stripe.String(cp.CustomerEmail),
		SuccessURL:         stripe.String(cp.SuccessURL),
		CancelURL:          stripe.String(cp.CancelURL),
	}
	params.Context = ctx
	for k, v := range cp.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyCompletionEvent checks the Stripe-Signature header against the
// webhook secret and decodes checkout.session.completed events. Other
// event types verify fine but return nil so the caller can ack and ignore.
func (p *StripeProvider) VerifyCompletionEvent(payload []byte, sigHeader string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrVerification, err)
	}

	out := &CompletedCheckout{
		SessionID:     cs.ID,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		CustomerEmail: cs.CustomerEmail,
		Metadata:      cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	return out, nil
}
