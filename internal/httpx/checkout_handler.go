package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/songgift/checkout/internal/checkout"
)

type CheckoutCreator interface {
	Create(ctx context.Context, p checkout.CreateParams) (*checkout.CreateResult, error)
}

type CheckoutHandler struct {
	Checkout CheckoutCreator
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.create)
}

type checkoutReq struct {
	SessionToken  string `json:"sessionToken"`
	Email         string `json:"email"`
	DeliverySpeed string `json:"deliverySpeed"`
	CouponCode    string `json:"couponCode,omitempty"`
}

type checkoutResp struct {
	RedirectURL string `json:"redirectUrl"`
	TrackingID  string `json:"trackingId"`
	TotalCents  int64  `json:"totalCents"`
}

func (h *CheckoutHandler) create(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Checkout.Create(ctx, checkout.CreateParams{
		SessionToken:  req.SessionToken,
		Email:         req.Email,
		DeliverySpeed: req.DeliverySpeed,
		CouponCode:    req.CouponCode,
		TraceID:       r.Header.Get("X-Request-Id"),
	})
	if errors.Is(err, checkout.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("httpx: checkout failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create checkout session"})
		return
	}

	writeJSON(w, http.StatusOK, checkoutResp{
		RedirectURL: res.RedirectURL,
		TrackingID:  res.TrackingID,
		TotalCents:  res.TotalCents,
	})
}
