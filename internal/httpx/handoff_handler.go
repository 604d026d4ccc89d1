package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/songgift/checkout/internal/handoff"
	"github.com/songgift/checkout/internal/orders"
)

type HandoffStore interface {
	Put(ctx context.Context, token string, p *orders.IntakePayload) error
	TakeOnce(ctx context.Context, token string) (*orders.IntakePayload, error)
}

type HandoffHandler struct {
	Store HandoffStore
}

func (h *HandoffHandler) Register(r *chi.Mux) {
	r.Post("/handoff", h.put)
	r.Get("/handoff", h.take)
}

type handoffReq struct {
	SessionToken string               `json:"sessionToken"`
	Payload      orders.IntakePayload `json:"payload"`
}

func (h *HandoffHandler) put(w http.ResponseWriter, r *http.Request) {
	var req handoffReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.SessionToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing sessionToken"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.Put(ctx, req.SessionToken, &req.Payload); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store handoff data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HandoffHandler) take(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("sessionToken")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing sessionToken parameter"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.TakeOnce(ctx, token)
	if errors.Is(err, handoff.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "handoff data not found or expired"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read handoff data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}
