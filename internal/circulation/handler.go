// internal/circulation/handler.go
package circulation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shelfmark/internal/catalog"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the circulation endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/circulation/purchase", h.handlePurchase)
	r.Post("/circulation/return", h.handleReturn)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Purchase)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Return)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req Request) (*Receipt, error)) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.SchoolID == "" || req.Class == "" || req.Barcode == "" {
		http.Error(w, "school_id, class and barcode are required", http.StatusBadRequest)
		return
	}

	receipt, err := op(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(receipt)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidStudent),
		errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrBookNotCheckedOut),
		errors.Is(err, ErrNoOpenPurchase):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
