package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/platform/httpx"
	"github.com/posterlane/api/internal/services"
)

const maxDiscountBodySize = 4 * 1024

type discountRulesService interface {
	PosterDiscounts() []domain.PosterDiscount
	AddPosterDiscount(ctx context.Context, rule domain.PosterDiscount) (domain.PosterDiscount, error)
	RemovePosterDiscount(ctx context.Context, id int64) error
	PromoCodes() []domain.PromoCode
	AddPromoCode(ctx context.Context, promo domain.PromoCode) (domain.PromoCode, error)
	RemovePromoCode(ctx context.Context, id int64) error
}

// DiscountHandlers exposes the admin CRUD surface over discount rules and
// promo codes.
type DiscountHandlers struct {
	rules discountRulesService
}

// NewDiscountHandlers wires the rules store.
func NewDiscountHandlers(rules discountRulesService) *DiscountHandlers {
	return &DiscountHandlers{rules: rules}
}

// Routes registers the discount endpoints under the provided router.
func (h *DiscountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/posters", h.listPosterDiscounts)
	r.Post("/posters", h.createPosterDiscount)
	r.Delete("/posters/{id}", h.deletePosterDiscount)
	r.Get("/promo", h.listPromoCodes)
	r.Post("/promo", h.createPromoCode)
	r.Delete("/promo/{id}", h.deletePromoCode)
}

type posterDiscountPayload struct {
	ID         int64   `json:"id"`
	PosterType string  `json:"posterType"`
	Size       string  `json:"size"`
	Percent    float64 `json:"percent"`
	Amount     float64 `json:"amount"`
}

type promoCodePayload struct {
	ID      int64   `json:"id"`
	Code    string  `json:"code"`
	Percent float64 `json:"percent"`
	Amount  float64 `json:"amount"`
}

func (h *DiscountHandlers) listPosterDiscounts(w http.ResponseWriter, r *http.Request) {
	rules := h.rules.PosterDiscounts()
	payload := make([]posterDiscountPayload, 0, len(rules))
	for _, rule := range rules {
		payload = append(payload, posterDiscountPayload{
			ID:         rule.ID,
			PosterType: rule.PosterType,
			Size:       rule.Size,
			Percent:    rule.Percent,
			Amount:     rule.Amount,
		})
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *DiscountHandlers) createPosterDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxDiscountBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req posterDiscountPayload
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	created, err := h.rules.AddPosterDiscount(ctx, domain.PosterDiscount{
		PosterType: req.PosterType,
		Size:       req.Size,
		Percent:    req.Percent,
		Amount:     req.Amount,
	})
	if err != nil {
		writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, posterDiscountPayload{
		ID:         created.ID,
		PosterType: created.PosterType,
		Size:       created.Size,
		Percent:    created.Percent,
		Amount:     created.Amount,
	})
}

func (h *DiscountHandlers) deletePosterDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseIDParam(ctx, w, r)
	if !ok {
		return
	}
	if err := h.rules.RemovePosterDiscount(ctx, id); err != nil {
		writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (h *DiscountHandlers) listPromoCodes(w http.ResponseWriter, r *http.Request) {
	promos := h.rules.PromoCodes()
	payload := make([]promoCodePayload, 0, len(promos))
	for _, promo := range promos {
		payload = append(payload, promoCodePayload{
			ID:      promo.ID,
			Code:    promo.Code,
			Percent: promo.Percent,
			Amount:  promo.Amount,
		})
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *DiscountHandlers) createPromoCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxDiscountBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req promoCodePayload
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	created, err := h.rules.AddPromoCode(ctx, domain.PromoCode{
		Code:    req.Code,
		Percent: req.Percent,
		Amount:  req.Amount,
	})
	if err != nil {
		writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, promoCodePayload{
		ID:      created.ID,
		Code:    created.Code,
		Percent: created.Percent,
		Amount:  created.Amount,
	})
}

func (h *DiscountHandlers) deletePromoCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseIDParam(ctx, w, r)
	if !ok {
		return
	}
	if err := h.rules.RemovePromoCode(ctx, id); err != nil {
		writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func parseIDParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "id must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}

func writeDiscountError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDiscountInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "discount authority is unreachable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("upstream_error", err.Error(), http.StatusBadGateway))
	}
}
