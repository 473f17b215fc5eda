package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates missing or malformed shipping fields.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutCartNotReady indicates the cart failed order-policy validation.
	ErrCheckoutCartNotReady = errors.New("checkout: cart not ready")
	// ErrCheckoutUnavailable indicates the order endpoint cannot be reached.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

type cartReader interface {
	Items() []domain.CartItem
}

type quoter interface {
	Quote(ctx context.Context, cmd QuoteCommand) (QuoteResult, error)
}

// CheckoutServiceDeps wires the collaborators of the checkout workflow.
type CheckoutServiceDeps struct {
	Cart        cartReader
	Pricer      quoter
	Policy      OrderPolicy
	Submitter   repositories.OrderSubmitter
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

// CheckoutService turns the current cart into a submitted order. Submission
// and cart clearing are two separate sequential steps: this service never
// clears the cart, so a failed submission leaves everything intact for retry.
type CheckoutService struct {
	cart      cartReader
	pricer    quoter
	policy    OrderPolicy
	submitter repositories.OrderSubmitter
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	newRef    func() string
}

// CheckoutCommand carries the shopper-entered checkout form.
type CheckoutCommand struct {
	Contact       domain.OrderContact
	PaymentMethod string
	PromoCode     string
}

// CheckoutResult is the submitted order reference plus the exact breakdown
// that was charged.
type CheckoutResult struct {
	OrderID   string
	ClientRef string
	Breakdown domain.PriceBreakdown
}

// NewCheckoutService validates dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (*CheckoutService, error) {
	if deps.Cart == nil {
		return nil, errors.New("checkout service: cart is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("checkout service: pricer is required")
	}
	if deps.Submitter == nil {
		return nil, errors.New("checkout service: submitter is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newRef := deps.IDGenerator
	if newRef == nil {
		newRef = func() string { return ulid.Make().String() }
	}

	return &CheckoutService{
		cart:      deps.Cart,
		pricer:    deps.Pricer,
		policy:    deps.Policy,
		submitter: deps.Submitter,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
		newRef:    newRef,
	}, nil
}

// Submit validates the form and the cart, quotes the final total through the
// pricing engine, and posts the order snapshot upstream.
func (s *CheckoutService) Submit(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	if s == nil || s.submitter == nil {
		return CheckoutResult{}, ErrCheckoutUnavailable
	}

	contact, err := normaliseContact(cmd.Contact)
	if err != nil {
		return CheckoutResult{}, err
	}
	payment := strings.TrimSpace(cmd.PaymentMethod)
	if payment == "" {
		return CheckoutResult{}, fmt.Errorf("%w: payment method is required", ErrCheckoutInvalidInput)
	}

	items := s.cart.Items()
	if validation := s.policy.ValidateCart(items); !validation.IsValid {
		return CheckoutResult{}, fmt.Errorf("%w: %s", ErrCheckoutCartNotReady, validation.Message)
	}

	quote, err := s.pricer.Quote(ctx, QuoteCommand{Items: items, City: contact.City, PromoCode: cmd.PromoCode})
	if err != nil {
		return CheckoutResult{}, err
	}
	if quote.PromoRejected {
		return CheckoutResult{}, fmt.Errorf("%w: unknown promo code", ErrCheckoutInvalidInput)
	}

	appliedPromo := ""
	if quote.AppliedPromo != nil {
		appliedPromo = quote.AppliedPromo.Code
	}

	order := domain.Order{
		ClientRef:     s.newRef(),
		Contact:       contact,
		PaymentMethod: payment,
		PromoCode:     appliedPromo,
		Items:         items,
		GrandTotal:    quote.Breakdown.GrandTotal,
		SubmittedAt:   s.now(),
	}

	orderID, err := s.submitter.SubmitOrder(ctx, order)
	if err != nil {
		if repositories.IsUnavailable(err) {
			return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
		}
		return CheckoutResult{}, fmt.Errorf("submit order: %w", err)
	}

	s.logger(ctx, "checkout.order_submitted", map[string]any{
		"orderId":    orderID,
		"clientRef":  order.ClientRef,
		"items":      len(order.Items),
		"grandTotal": order.GrandTotal,
	})
	return CheckoutResult{OrderID: orderID, ClientRef: order.ClientRef, Breakdown: quote.Breakdown}, nil
}

func normaliseContact(contact domain.OrderContact) (domain.OrderContact, error) {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Address = strings.TrimSpace(contact.Address)
	contact.City = strings.TrimSpace(contact.City)
	contact.Thana = strings.TrimSpace(contact.Thana)
	contact.PostalCode = strings.TrimSpace(contact.PostalCode)

	var missing []string
	if contact.Name == "" {
		missing = append(missing, "name")
	}
	if contact.Phone == "" {
		missing = append(missing, "phone")
	}
	if contact.Address == "" {
		missing = append(missing, "address")
	}
	if contact.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return domain.OrderContact{}, fmt.Errorf("%w: missing %s", ErrCheckoutInvalidInput, strings.Join(missing, ", "))
	}
	return contact, nil
}
