package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/platform/httpx"
	"github.com/posterlane/api/internal/services"
)

const maxCheckoutBodySize = 8 * 1024

type checkoutService interface {
	Submit(ctx context.Context, cmd services.CheckoutCommand) (services.CheckoutResult, error)
}

type cartClearer interface {
	Clear(ctx context.Context)
}

// CheckoutHandlers exposes order submission. Submission and cart clearing are
// sequential steps: the cart is cleared only after the upstream accepted the
// order.
type CheckoutHandlers struct {
	checkout checkoutService
	cart     cartClearer
}

// NewCheckoutHandlers wires the checkout service and the cart store.
func NewCheckoutHandlers(checkout checkoutService, cart cartClearer) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout, cart: cart}
}

// Routes registers the checkout endpoint under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submit)
}

type checkoutRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Thana         string `json:"thana"`
	PostalCode    string `json:"postal_code"`
	PaymentMethod string `json:"payment_method"`
	PromoCode     string `json:"promo_code"`
}

type checkoutResponse struct {
	Message   string           `json:"message"`
	OrderID   string           `json:"order_id"`
	ClientRef string           `json:"client_ref"`
	Breakdown breakdownPayload `json:"breakdown"`
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.Submit(ctx, services.CheckoutCommand{
		Contact: domain.OrderContact{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Address:    req.Address,
			City:       req.City,
			Thana:      req.Thana,
			PostalCode: req.PostalCode,
		},
		PaymentMethod: req.PaymentMethod,
		PromoCode:     req.PromoCode,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	if h.cart != nil {
		h.cart.Clear(ctx)
	}

	writeJSONResponse(w, http.StatusCreated, checkoutResponse{
		Message:   "Order placed",
		OrderID:   result.OrderID,
		ClientRef: result.ClientRef,
		Breakdown: buildBreakdownPayload(result.Breakdown),
	})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutCartNotReady):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_ready", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "order endpoint is unreachable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("upstream_error", err.Error(), http.StatusBadGateway))
	}
}
