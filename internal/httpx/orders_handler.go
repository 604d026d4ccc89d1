package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/redisx"
)

type OrderReader interface {
	GetByTrackingID(ctx context.Context, trackingID string) (*orders.Order, error)
	GetBySessionOrPaymentSession(ctx context.Context, id string) (*orders.Order, error)
}

// OrdersHandler exposes read-only order snapshots for the tracking page
// and success-page polling. Callers poll while the completion event is
// still in flight, so pending snapshots are served but never cached.
type OrdersHandler struct {
	Repo  OrderReader
	Redis *redis.Client
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/by-tracking-id", h.byTrackingID)
	r.Get("/orders/by-session", h.bySession)
}

type orderSnapshot struct {
	TrackingID         string     `json:"trackingId"`
	Status             string     `json:"status"`
	DeliverySpeed      string     `json:"deliverySpeed"`
	ExpectedDeliveryAt time.Time  `json:"expectedDeliveryAt"`
	AmountPaidCents    int64      `json:"amountPaidCents"`
	Currency           string     `json:"currency"`
	RecipientName      string     `json:"recipientName,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	PaidAt             *time.Time `json:"paidAt,omitempty"`
}

func snapshotOf(o *orders.Order) orderSnapshot {
	return orderSnapshot{
		TrackingID:         o.TrackingID,
		Status:             string(o.Status),
		DeliverySpeed:      string(o.DeliverySpeed),
		ExpectedDeliveryAt: o.ExpectedDeliveryAt,
		AmountPaidCents:    o.AmountPaidCents,
		Currency:           o.Currency,
		RecipientName:      o.RecipientName,
		CreatedAt:          o.CreatedAt,
		PaidAt:             o.PaidAt,
	}
}

func (h *OrdersHandler) byTrackingID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Repo.GetByTrackingID(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	snap := snapshotOf(o)
	// Cache only settled orders; a cached pending would stall pollers.
	if h.Redis != nil && o.Status != orders.StatusPending {
		if b, err := json.Marshal(snap); err == nil {
			_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *OrdersHandler) bySession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetBySessionOrPaymentSession(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, snapshotOf(o))
}
