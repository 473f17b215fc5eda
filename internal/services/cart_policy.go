package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	domain "github.com/posterlane/api/internal/domain"
)

// EmptyCartMessage is the dedicated validation message for an empty cart.
const EmptyCartMessage = "Your cart is empty."

// ErrInvalidOrderPolicy indicates a policy file that cannot be used.
var ErrInvalidOrderPolicy = errors.New("order policy: invalid policy")

// TypeRule is one minimum-order rule. A cart satisfies the rule when the
// aggregate quantity across the poster type reaches MinTotalQuantity, or when
// MinPerSizeQuantity is set and every size of that type independently reaches
// it.
type TypeRule struct {
	PosterType         string `json:"posterType"`
	MinTotalQuantity   int    `json:"minTotalQuantity"`
	MinPerSizeQuantity int    `json:"minPerSizeQuantity,omitempty"`
	Message            string `json:"message"`
}

// OrderPolicy is the evaluated policy table. Poster types without a rule are
// unconstrained. Rules are evaluated in order and the first violation wins.
type OrderPolicy struct {
	Rules []TypeRule `json:"rules"`
}

// ValidationResult reports whether checkout may proceed. An invalid cart is a
// normal outcome, not an error.
type ValidationResult struct {
	IsValid bool
	Message string
}

// DefaultOrderPolicy is the built-in policy table, used when no policy file
// is configured.
func DefaultOrderPolicy() OrderPolicy {
	return OrderPolicy{Rules: []TypeRule{
		{
			PosterType:         "PVC Poster",
			MinTotalQuantity:   3,
			MinPerSizeQuantity: 2,
			Message:            "Minimum order for PVC Poster is 3 pieces, or 2 pieces per size.",
		},
		{
			PosterType:       "Sticker Poster",
			MinTotalQuantity: 2,
			Message:          "Minimum order for Sticker Poster is 2 pieces.",
		},
	}}
}

// LoadOrderPolicy reads a policy table from a JSON file. An empty path yields
// the default policy.
func LoadOrderPolicy(path string) (OrderPolicy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultOrderPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return OrderPolicy{}, fmt.Errorf("read order policy: %w", err)
	}
	var policy OrderPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return OrderPolicy{}, fmt.Errorf("%w: %v", ErrInvalidOrderPolicy, err)
	}
	if err := policy.validate(); err != nil {
		return OrderPolicy{}, err
	}
	return policy, nil
}

func (p OrderPolicy) validate() error {
	seen := make(map[string]bool, len(p.Rules))
	for _, rule := range p.Rules {
		if strings.TrimSpace(rule.PosterType) == "" {
			return fmt.Errorf("%w: rule without poster type", ErrInvalidOrderPolicy)
		}
		if seen[rule.PosterType] {
			return fmt.Errorf("%w: duplicate rule for %q", ErrInvalidOrderPolicy, rule.PosterType)
		}
		seen[rule.PosterType] = true
		if rule.MinTotalQuantity < 0 || rule.MinPerSizeQuantity < 0 {
			return fmt.Errorf("%w: negative minimum for %q", ErrInvalidOrderPolicy, rule.PosterType)
		}
		if strings.TrimSpace(rule.Message) == "" {
			return fmt.Errorf("%w: rule for %q has no message", ErrInvalidOrderPolicy, rule.PosterType)
		}
	}
	return nil
}

// ValidateCart evaluates the policy table against the cart. It performs no
// mutation and gates whether checkout may start.
func (p OrderPolicy) ValidateCart(items []domain.CartItem) ValidationResult {
	if len(items) == 0 {
		return ValidationResult{IsValid: false, Message: EmptyCartMessage}
	}

	typeTotals := make(map[string]int)
	sizeTotals := make(map[string]map[string]int)
	for _, item := range items {
		typeTotals[item.PosterType] += item.Quantity
		bySize := sizeTotals[item.PosterType]
		if bySize == nil {
			bySize = make(map[string]int)
			sizeTotals[item.PosterType] = bySize
		}
		bySize[item.Size] += item.Quantity
	}

	for _, rule := range p.Rules {
		total, present := typeTotals[rule.PosterType]
		if !present {
			continue
		}
		if total >= rule.MinTotalQuantity {
			continue
		}
		if rule.MinPerSizeQuantity > 0 && perSizeSatisfied(sizeTotals[rule.PosterType], rule.MinPerSizeQuantity) {
			continue
		}
		return ValidationResult{IsValid: false, Message: rule.Message}
	}
	return ValidationResult{IsValid: true}
}

func perSizeSatisfied(bySize map[string]int, min int) bool {
	for _, quantity := range bySize {
		if quantity < min {
			return false
		}
	}
	return true
}
