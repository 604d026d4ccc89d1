package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/songgift/checkout/internal/coupon"
	"github.com/songgift/checkout/internal/redisx"
)

const (
	couponRateLimit  = 5
	couponRateWindow = 5 * time.Minute
)

type CouponValidator interface {
	Validate(ctx context.Context, code string, amountCents int64) (*coupon.Result, error)
}

// CouponHandler serves the advisory pre-checkout validation. The creator
// re-validates authoritatively, so this endpoint only shapes the UI.
type CouponHandler struct {
	Validator CouponValidator
	Redis     *redis.Client
}

func (h *CouponHandler) Register(r *chi.Mux) {
	r.Post("/coupons/validate", h.validate)
}

type couponReq struct {
	Code        string `json:"code"`
	AmountCents int64  `json:"amountCents"`
}

func (h *CouponHandler) validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Code guessing is cheap without a limit; counters live in Redis so
	// the limit holds across instances.
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyRateLimit, "coupon", clientIP(r))
		ok, err := redisx.Allow(ctx, h.Redis, key, couponRateLimit, couponRateWindow)
		if err != nil {
			log.Printf("httpx: coupon rate limit check: %v", err)
		} else if !ok {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"valid": false, "error": "too many attempts, try again in a few minutes",
			})
			return
		}
	}

	var req couponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "error": "invalid json"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "error": "coupon code is required"})
		return
	}
	if req.AmountCents <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "error": "valid amount is required"})
		return
	}

	res, err := h.Validator.Validate(ctx, req.Code, req.AmountCents)
	if err != nil {
		log.Printf("httpx: coupon validation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"valid": false, "error": "failed to validate coupon"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// clientIP strips the port RemoteAddr carries when no forwarding header
// rewrote it (RealIP middleware leaves a bare IP otherwise), so the rate
// limit counts per address, not per connection.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
