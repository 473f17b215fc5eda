package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/platform/httpx"
	"github.com/posterlane/api/internal/services"
)

const maxCartBodySize = 8 * 1024

type cartService interface {
	AddItem(ctx context.Context, draft services.CartDraft) (domain.CartItem, error)
	RemoveItem(ctx context.Context, index int)
	UpdateQuantity(ctx context.Context, index, quantity int)
	Clear(ctx context.Context)
	Items() []domain.CartItem
	State() domain.CartState
}

type quoteService interface {
	Quote(ctx context.Context, cmd services.QuoteCommand) (services.QuoteResult, error)
}

// CartHandlers exposes cart read/mutate endpoints plus the quote endpoint.
type CartHandlers struct {
	cart   cartService
	pricer quoteService
	policy services.OrderPolicy
}

// NewCartHandlers wires the cart store, pricing engine, and order policy.
func NewCartHandlers(cart cartService, pricer quoteService, policy services.OrderPolicy) *CartHandlers {
	return &CartHandlers{cart: cart, pricer: pricer, policy: policy}
}

// Routes registers the cart endpoints under the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.writeCart)
	r.Delete("/", h.clearCart)
	r.Get("/quote", h.quote)
	r.Post("/items", h.addItem)
	r.Patch("/items/{index}", h.updateItem)
	r.Delete("/items/{index}", h.removeItem)
}

type cartItemPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Type      string `json:"type"`
	Size      string `json:"size"`
	Thickness string `json:"thickness,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	OrderCode string `json:"orderCode,omitempty"`
	AddedAt   string `json:"addedAt,omitempty"`
}

type validationPayload struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

type cartPayload struct {
	Items         []cartItemPayload `json:"items"`
	Validation    validationPayload `json:"validation"`
	Breakdown     breakdownPayload  `json:"breakdown"`
	PromoApplied  string            `json:"promoApplied,omitempty"`
	PromoRejected bool              `json:"promoRejected,omitempty"`
}

type addItemRequest struct {
	Title     string `json:"title"`
	Image     string `json:"image"`
	Type      string `json:"type"`
	Size      string `json:"size"`
	Thickness string `json:"thickness"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	OrderCode string `json:"orderCode"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type breakdownPayload struct {
	Currency                  string  `json:"currency"`
	Subtotal                  float64 `json:"subtotal"`
	ItemDiscountTotal         float64 `json:"itemDiscountTotal"`
	SubtotalAfterItemDiscount float64 `json:"subtotalAfterItemDiscount"`
	DeliveryCharge            float64 `json:"deliveryCharge"`
	PromoDiscount             float64 `json:"promoDiscount"`
	GrandTotal                float64 `json:"grandTotal"`
	GrandTotalFormatted       string  `json:"grandTotalFormatted"`
}

type quotePayload struct {
	Breakdown     breakdownPayload `json:"breakdown"`
	PromoApplied  string           `json:"promoApplied,omitempty"`
	PromoRejected bool             `json:"promoRejected,omitempty"`
}

// writeCart renders the current cart together with its quoted breakdown so
// every response carries the same totals the storefront displays. City and
// promo come from query parameters and may be absent.
func (h *CartHandlers) writeCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items := h.cart.Items()

	result, err := h.pricer.Quote(ctx, services.QuoteCommand{
		Items:     items,
		City:      r.URL.Query().Get("city"),
		PromoCode: r.URL.Query().Get("promo"),
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unable to compute cart totals", http.StatusInternalServerError))
		return
	}

	payload := buildCartPayload(items, h.policy)
	payload.Breakdown = buildBreakdownPayload(result.Breakdown)
	payload.PromoRejected = result.PromoRejected
	if result.AppliedPromo != nil {
		payload.PromoApplied = result.AppliedPromo.Code
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	item, err := h.cart.AddItem(ctx, services.CartDraft{
		Title:          req.Title,
		Image:          req.Image,
		PosterType:     req.Type,
		Size:           req.Size,
		Thickness:      req.Thickness,
		UnitPrice:      req.Price,
		Quantity:       req.Quantity,
		CustomOrderRef: req.OrderCode,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildCartItem(item))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := parseIndexParam(ctx, w, r)
	if !ok {
		return
	}
	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateItemRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	h.cart.UpdateQuantity(ctx, index, *req.Quantity)
	h.writeCart(w, r)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := parseIndexParam(ctx, w, r)
	if !ok {
		return
	}
	h.cart.RemoveItem(ctx, index)
	h.writeCart(w, r)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	h.writeCart(w, r)
}

func (h *CartHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.pricer.Quote(ctx, services.QuoteCommand{
		Items:     h.cart.Items(),
		City:      r.URL.Query().Get("city"),
		PromoCode: r.URL.Query().Get("promo"),
	})
	if err != nil {
		if errors.Is(err, services.ErrPricingInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unable to compute quote", http.StatusInternalServerError))
		return
	}

	payload := quotePayload{
		Breakdown:     buildBreakdownPayload(result.Breakdown),
		PromoRejected: result.PromoRejected,
	}
	if result.AppliedPromo != nil {
		payload.PromoApplied = result.AppliedPromo.Code
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func parseIndexParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "index must be a non-negative integer", http.StatusBadRequest))
		return 0, false
	}
	return index, true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	}
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrCartInvalidInput) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "cart operation failed", http.StatusInternalServerError))
}

func buildCartPayload(items []domain.CartItem, policy services.OrderPolicy) cartPayload {
	payloadItems := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		payloadItems = append(payloadItems, buildCartItem(item))
	}
	validation := policy.ValidateCart(items)
	return cartPayload{
		Items: payloadItems,
		Validation: validationPayload{
			IsValid: validation.IsValid,
			Message: validation.Message,
		},
	}
}

func buildCartItem(item domain.CartItem) cartItemPayload {
	payload := cartItemPayload{
		ID:        item.ID,
		Title:     item.Title,
		Image:     item.Image,
		Type:      item.PosterType,
		Size:      item.Size,
		Thickness: item.Thickness,
		Price:     item.UnitPrice,
		Quantity:  item.Quantity,
		OrderCode: item.CustomOrderRef,
	}
	if !item.AddedAt.IsZero() {
		payload.AddedAt = item.AddedAt.UTC().Format(time.RFC3339Nano)
	}
	return payload
}

func buildBreakdownPayload(b domain.PriceBreakdown) breakdownPayload {
	return breakdownPayload{
		Currency:                  domain.CurrencyCode,
		Subtotal:                  b.Subtotal,
		ItemDiscountTotal:         b.ItemDiscountTotal,
		SubtotalAfterItemDiscount: b.SubtotalAfterItemDiscount,
		DeliveryCharge:            b.DeliveryCharge,
		PromoDiscount:             b.PromoDiscount,
		GrandTotal:                b.GrandTotal,
		GrandTotalFormatted:       domain.FormatBDT(b.GrandTotal),
	}
}
