package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/songgift/checkout/internal/coupon"
	"github.com/songgift/checkout/internal/handoff"
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/payments"
)

type fakeOrders struct {
	inserted []*orders.Order
	linked   map[string]string
	insertErr error
}

func (f *fakeOrders) Insert(_ context.Context, o *orders.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	o.ID = fmt.Sprintf("ord-%d", len(f.inserted)+1)
	o.CreatedAt = time.Now().UTC()
	o.Status = orders.StatusPending
	f.inserted = append(f.inserted, o)
	return nil
}

func (f *fakeOrders) SetPaymentSession(_ context.Context, orderID, sessionID string) error {
	if f.linked == nil {
		f.linked = map[string]string{}
	}
	f.linked[orderID] = sessionID
	return nil
}

type fakeHandoff struct {
	entries map[string]*orders.IntakePayload
}

func (f *fakeHandoff) TakeOnce(_ context.Context, token string) (*orders.IntakePayload, error) {
	p, ok := f.entries[token]
	if !ok {
		return nil, handoff.ErrNotFound
	}
	delete(f.entries, token)
	return p, nil
}

type fakeCoupons struct {
	result     *coupon.Result
	err        error
	calledWith int64
}

func (f *fakeCoupons) Validate(_ context.Context, code string, amountCents int64) (*coupon.Result, error) {
	f.calledWith = amountCents
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &coupon.Result{Valid: false, Reason: "invalid coupon code"}, nil
}

type fakeProvider struct {
	params  payments.CreateSessionParams
	session *payments.Session
	err     error
	onCall  func()
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, p payments.CreateSessionParams) (*payments.Session, error) {
	if f.onCall != nil {
		f.onCall()
	}
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	if f.session != nil {
		return f.session, nil
	}
	return &payments.Session{ID: "cs_test_123", URL: "https://pay.example/cs_test_123"}, nil
}

func newService(store *fakeOrders, h *fakeHandoff, c *fakeCoupons, p *fakeProvider) *Service {
	if h == nil {
		h = &fakeHandoff{}
	}
	if c == nil {
		c = &fakeCoupons{}
	}
	if p == nil {
		p = &fakeProvider{}
	}
	return &Service{
		Orders:   store,
		Handoff:  h,
		Coupons:  c,
		Provider: p,
		Pricing:  DefaultPricing,
		BaseURL:  "https://songgift.example",
		Service:  "checkout-api",
	}
}

func TestCreateStandardNoCoupon(t *testing.T) {
	store := &fakeOrders{}
	provider := &fakeProvider{}
	svc := newService(store, nil, nil, provider)

	before := time.Now().UTC()
	res, err := svc.Create(context.Background(), CreateParams{
		SessionToken:  "tok-1",
		Email:         "buyer@example.com",
		DeliverySpeed: "standard",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/cs_test_123", res.RedirectURL)
	require.Equal(t, int64(7900), res.TotalCents)

	require.Len(t, store.inserted, 1)
	o := store.inserted[0]
	require.Equal(t, orders.StatusPending, o.Status)
	require.Equal(t, int64(7900), o.AmountPaidCents)
	require.Regexp(t, regexp.MustCompile(`^SG-[A-Z0-9]{8}$`), o.TrackingID)
	require.Equal(t, orders.DeliveryStandard, o.DeliverySpeed)
	require.WithinDuration(t, before.Add(48*time.Hour), o.ExpectedDeliveryAt, 5*time.Second)
	require.Equal(t, "buyer@example.com", o.CustomerEmail)

	// provider session linked back onto the order
	require.Equal(t, "cs_test_123", store.linked[o.ID])

	// correlation metadata round-trips through the provider
	require.Equal(t, o.ID, provider.params.Metadata[payments.MetaOrderID])
	require.Equal(t, o.TrackingID, provider.params.Metadata[payments.MetaTrackingID])
	require.Equal(t, "tok-1", provider.params.Metadata[payments.MetaSessionToken])
	require.Equal(t, "standard", provider.params.Metadata[payments.MetaDeliverySpeed])

	require.Len(t, provider.params.LineItems, 1)
	require.Equal(t, int64(7900), provider.params.LineItems[0].AmountCents)
}

func TestCreateExpressWithCoupon(t *testing.T) {
	store := &fakeOrders{}
	coupons := &fakeCoupons{result: &coupon.Result{
		Valid: true, CouponCode: "SAVE10", DiscountAmountCents: 1180, FinalAmountCents: 10620,
	}}
	provider := &fakeProvider{}
	svc := newService(store, nil, coupons, provider)

	res, err := svc.Create(context.Background(), CreateParams{
		SessionToken:  "tok-2",
		Email:         "buyer@example.com",
		DeliverySpeed: "express",
		CouponCode:    "save10",
	})
	require.NoError(t, err)

	// coupon validated against the provider-required total, not any
	// client-declared number
	require.Equal(t, int64(11800), coupons.calledWith)
	require.Equal(t, int64(10620), res.TotalCents)

	o := store.inserted[0]
	require.Equal(t, "SAVE10", o.CouponCode)
	require.Equal(t, int64(1180), o.CouponDiscountCents)
	require.Equal(t, "SAVE10", provider.params.Metadata[payments.MetaCouponCode])
	require.Equal(t, "1180", provider.params.Metadata[payments.MetaCouponDiscount])

	var sum int64
	for _, it := range provider.params.LineItems {
		sum += it.AmountCents
	}
	require.Equal(t, int64(10620), sum)
}

func TestCreateRushAliasMapsToExpress(t *testing.T) {
	store := &fakeOrders{}
	svc := newService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateParams{
		SessionToken: "tok-3", Email: "b@example.com", DeliverySpeed: "rush",
	})
	require.NoError(t, err)
	require.Equal(t, orders.DeliveryExpress, store.inserted[0].DeliverySpeed)
}

func TestCreateInvalidInput(t *testing.T) {
	svc := newService(&fakeOrders{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{Email: "b@example.com", DeliverySpeed: "standard"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, CreateParams{SessionToken: "t", Email: "not-an-email", DeliverySpeed: "standard"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, CreateParams{SessionToken: "t", Email: "b@example.com", DeliverySpeed: "teleport"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateMissingHandoffDegrades(t *testing.T) {
	store := &fakeOrders{}
	svc := newService(store, &fakeHandoff{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateParams{
		SessionToken: "gone", Email: "b@example.com", DeliverySpeed: "standard",
	})
	require.NoError(t, err)
	require.True(t, store.inserted[0].Intake.IsEmpty())
	require.Equal(t, "b@example.com", store.inserted[0].CustomerEmail)
}

func TestCreateIntakeAttachedAndConsumed(t *testing.T) {
	store := &fakeOrders{}
	h := &fakeHandoff{entries: map[string]*orders.IntakePayload{
		"tok-4": {FullName: "Ana Lima", Email: "ana@example.com", RecipientName: "Marcos"},
	}}
	svc := newService(store, h, nil, nil)

	_, err := svc.Create(context.Background(), CreateParams{
		SessionToken: "tok-4", Email: "buyer@example.com", DeliverySpeed: "standard",
	})
	require.NoError(t, err)

	o := store.inserted[0]
	require.Equal(t, "Ana Lima", o.CustomerName)
	require.Equal(t, "Marcos", o.RecipientName)
	// intake email wins over the checkout form email
	require.Equal(t, "ana@example.com", o.CustomerEmail)
	// entry consumed
	require.Empty(t, h.entries)
}

func TestCreateProviderFailureKeepsPendingOrder(t *testing.T) {
	store := &fakeOrders{}
	provider := &fakeProvider{err: errors.New("provider down")}
	svc := newService(store, nil, nil, provider)

	_, err := svc.Create(context.Background(), CreateParams{
		SessionToken: "tok-5", Email: "b@example.com", DeliverySpeed: "standard",
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidInput)
	// the pending order survives for manual reconciliation
	require.Len(t, store.inserted, 1)
}

func TestCreatePersistFailureBlocksProviderCall(t *testing.T) {
	providerCalled := false
	store := &fakeOrders{insertErr: errors.New("db down")}
	provider := &fakeProvider{onCall: func() { providerCalled = true }}
	svc := newService(store, nil, nil, provider)

	_, err := svc.Create(context.Background(), CreateParams{
		SessionToken: "tok-6", Email: "b@example.com", DeliverySpeed: "standard",
	})
	require.Error(t, err)
	// no payment session may ever exist without a matching order
	require.False(t, providerCalled)
}

func TestCreateInvalidCouponProceedsWithoutDiscount(t *testing.T) {
	store := &fakeOrders{}
	svc := newService(store, nil, &fakeCoupons{}, nil)

	res, err := svc.Create(context.Background(), CreateParams{
		SessionToken: "tok-7", Email: "b@example.com", DeliverySpeed: "standard", CouponCode: "BOGUS",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7900), res.TotalCents)
	require.Empty(t, store.inserted[0].CouponCode)
}
