package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/posterlane/api/internal/domain"
)

// Delivery zones are a flat two-tier policy keyed on the city name, with an
// explicit "unset" state billed at zero until the shopper enters a city.
const (
	deliveryChargeUnset   = 0.0
	deliveryChargeDhaka   = 70.0
	deliveryChargeOutside = 120.0
)

const pricingMetricNamespace = "posterlane.pricing"

// ErrPricingInvalidInput indicates the caller supplied malformed quote data
// such as a negative quantity or unit price.
var ErrPricingInvalidInput = errors.New("pricing engine: invalid input")

// DiscountRuleSource supplies the active discount rules to the engine. Rule
// lookup never fails: a miss is an absent value, not an error.
type DiscountRuleSource interface {
	FindPosterDiscount(posterType, size string) (domain.PosterDiscount, bool)
	FindPromoCode(code string) (domain.PromoCode, bool)
}

// PricingEngineDeps wires the rule source and observability collaborators.
type PricingEngineDeps struct {
	Rules  DiscountRuleSource
	Meter  metric.Meter
	Logger func(context.Context, string, map[string]any)
}

// PricingEngine is the single source of truth for every displayed price:
// subtotal, discount lines, delivery charge, and total shown anywhere must
// come from Quote, never be recomputed ad hoc.
type PricingEngine struct {
	rules  DiscountRuleSource
	logger func(context.Context, string, map[string]any)

	quoteLatency           metric.Float64Histogram
	quoteLatencyEnabled    bool
	promoRejections        metric.Int64Counter
	promoRejectionsEnabled bool
}

// QuoteCommand carries the inputs of one price computation. PromoCode is the
// raw shopper-submitted string; City may be empty while the shopper has not
// picked a delivery destination yet.
type QuoteCommand struct {
	Items     []domain.CartItem
	City      string
	PromoCode string
}

// QuoteResult is the computed breakdown plus the promo resolution outcome.
// PromoRejected reports that a non-empty code matched no known promo; it is a
// normal outcome, not an error.
type QuoteResult struct {
	Breakdown     domain.PriceBreakdown
	AppliedPromo  *domain.PromoCode
	PromoRejected bool
}

// NewPricingEngine validates dependencies and registers the engine's metric
// instruments, degrading to no-op instruments when registration fails.
func NewPricingEngine(deps PricingEngineDeps) (*PricingEngine, error) {
	if deps.Rules == nil {
		return nil, errors.New("pricing engine: rule source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(pricingMetricNamespace)
	}

	latency, latencyErr := meter.Float64Histogram(
		"pricing.quote.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for cart quote computations"),
	)
	rejections, rejectionsErr := meter.Int64Counter(
		"pricing.quote.promo_rejections",
		metric.WithDescription("Count of submitted promo codes that matched no known promotion"),
	)

	return &PricingEngine{
		rules:                  deps.Rules,
		logger:                 logger,
		quoteLatency:           latency,
		quoteLatencyEnabled:    latencyErr == nil,
		promoRejections:        rejections,
		promoRejectionsEnabled: rejectionsErr == nil,
	}, nil
}

// DeliveryCharge resolves the flat delivery fee for a city. Matching is
// case-insensitive with surrounding whitespace trimmed.
func DeliveryCharge(city string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(city))
	switch normalized {
	case "":
		return deliveryChargeUnset
	case "dhaka":
		return deliveryChargeDhaka
	default:
		return deliveryChargeOutside
	}
}

// Quote computes the full price breakdown for the given cart. It is pure and
// deterministic for fixed inputs and never mutates its arguments.
//
// Rounding is applied at exactly two points, the item-discount total and the
// grand total; intermediate per-item arithmetic keeps full precision so
// per-unit rounding error cannot compound across lines.
func (e *PricingEngine) Quote(ctx context.Context, cmd QuoteCommand) (QuoteResult, error) {
	if e == nil || e.rules == nil {
		return QuoteResult{}, errors.New("pricing engine: not initialised")
	}
	started := time.Now()

	var subtotal float64
	var itemDiscount float64
	for _, item := range cmd.Items {
		if item.Quantity < 0 || item.UnitPrice < 0 {
			return QuoteResult{}, ErrPricingInvalidInput
		}
		quantity := float64(item.Quantity)
		price := float64(item.UnitPrice)
		subtotal += price * quantity

		// Match key is (posterType, size) only; thickness is deliberately
		// not part of discount targeting.
		if rule, ok := e.rules.FindPosterDiscount(item.PosterType, item.Size); ok {
			perUnit := math.Max(price*rule.Percent/100, rule.Amount)
			itemDiscount += perUnit * quantity
		}
	}

	itemDiscountTotal := round2(itemDiscount)
	subtotalAfter := subtotal - itemDiscountTotal
	delivery := DeliveryCharge(cmd.City)

	result := QuoteResult{}
	var promoDiscount float64
	if code := strings.TrimSpace(cmd.PromoCode); code != "" {
		if promo, ok := e.rules.FindPromoCode(code); ok {
			promoDiscount = math.Max(subtotalAfter*promo.Percent/100, promo.Amount)
			applied := promo
			result.AppliedPromo = &applied
		} else {
			result.PromoRejected = true
			e.logger(ctx, "pricing.promo_rejected", map[string]any{"code": code})
			if e.promoRejectionsEnabled {
				e.promoRejections.Add(ctx, 1)
			}
		}
	}

	result.Breakdown = domain.PriceBreakdown{
		Subtotal:                  subtotal,
		ItemDiscountTotal:         itemDiscountTotal,
		SubtotalAfterItemDiscount: subtotalAfter,
		DeliveryCharge:            delivery,
		PromoDiscount:             promoDiscount,
		GrandTotal:                round2(subtotalAfter + delivery - promoDiscount),
	}

	if e.quoteLatencyEnabled {
		e.quoteLatency.Record(ctx, float64(time.Since(started).Microseconds())/1000)
	}
	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
