package httpx

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/songgift/checkout/internal/payments"
	"github.com/songgift/checkout/internal/reconcile"
)

const maxWebhookBody = 1 << 20 // provider events are small; cap reads

type EventHandler interface {
	HandleEvent(ctx context.Context, payload []byte, sigHeader string) (*reconcile.Result, error)
}

type WebhookHandler struct {
	Recon EventHandler
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhook", h.handle)
}

// handle maps reconciliation outcomes onto what the provider's retry
// machinery needs to see: 400 for a permanently-unverifiable event, 500
// only for transient failures where a retry can succeed, and 200 otherwise.
// Unmatched events get a 200 too, since retrying can never fix them.
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": "unreadable body"})
		return
	}
	sig := r.Header.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Recon.HandleEvent(ctx, body, sig)
	if errors.Is(err, payments.ErrVerification) {
		log.Printf("httpx: SECURITY webhook signature verification failed: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": "invalid signature"})
		return
	}
	if err != nil {
		log.Printf("httpx: webhook processing failed, provider will retry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"received": false, "error": "transient failure"})
		return
	}

	resp := map[string]any{"received": true, "status": string(res.Outcome)}
	if res.Outcome == reconcile.OutcomeUnmatched {
		resp["error"] = "no matching order"
	}
	if res.Order != nil {
		resp["trackingId"] = res.Order.TrackingID
	}
	writeJSON(w, http.StatusOK, resp)
}
