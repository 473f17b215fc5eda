package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/repositories"
)

var (
	// ErrDiscountInvalidInput indicates a malformed rule or promo code.
	ErrDiscountInvalidInput = errors.New("discount rules: invalid input")
	// ErrDiscountNotFound indicates the referenced rule does not exist upstream.
	ErrDiscountNotFound = errors.New("discount rules: not found")
	// ErrDiscountUnavailable indicates the remote rule authority cannot be reached.
	ErrDiscountUnavailable = errors.New("discount rules: unavailable")
)

// DiscountRulesStoreDeps wires the remote rule client and logging.
type DiscountRulesStoreDeps struct {
	Client repositories.DiscountRuleClient
	Logger func(context.Context, string, map[string]any)
}

// DiscountRulesStore caches the remote discount rules for lookup by the
// pricing engine. Mutations are two-phase: the remote call runs first and the
// cache is touched only on success, so the cache never claims a rule the
// authority rejected.
type DiscountRulesStore struct {
	client repositories.DiscountRuleClient
	logger func(context.Context, string, map[string]any)

	mu              sync.RWMutex
	posterDiscounts []domain.PosterDiscount
	promoCodes      []domain.PromoCode
}

// NewDiscountRulesStore validates dependencies; call Load before serving
// quotes so the cache reflects the authority.
func NewDiscountRulesStore(deps DiscountRulesStoreDeps) (*DiscountRulesStore, error) {
	if deps.Client == nil {
		return nil, errors.New("discount rules: client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &DiscountRulesStore{client: deps.Client, logger: logger}, nil
}

// Load replaces the cache with the authority's full rule set. On failure the
// previous cache is left untouched.
func (s *DiscountRulesStore) Load(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrDiscountUnavailable
	}

	discounts, err := s.client.ListPosterDiscounts(ctx)
	if err != nil {
		return s.translate("list poster discounts", err)
	}
	promos, err := s.client.ListPromoCodes(ctx)
	if err != nil {
		return s.translate("list promo codes", err)
	}

	s.warnDuplicates(ctx, discounts)

	s.mu.Lock()
	s.posterDiscounts = discounts
	s.promoCodes = promos
	s.mu.Unlock()
	return nil
}

// AddPosterDiscount creates the rule upstream and caches the stored record.
func (s *DiscountRulesStore) AddPosterDiscount(ctx context.Context, rule domain.PosterDiscount) (domain.PosterDiscount, error) {
	if s == nil || s.client == nil {
		return domain.PosterDiscount{}, ErrDiscountUnavailable
	}

	rule.PosterType = strings.TrimSpace(rule.PosterType)
	rule.Size = strings.TrimSpace(rule.Size)
	if rule.PosterType == "" || rule.Size == "" {
		return domain.PosterDiscount{}, fmt.Errorf("%w: poster type and size are required", ErrDiscountInvalidInput)
	}
	if rule.Percent < 0 || rule.Percent > 100 || rule.Amount < 0 {
		return domain.PosterDiscount{}, fmt.Errorf("%w: percent must be 0-100 and amount non-negative", ErrDiscountInvalidInput)
	}

	created, err := s.client.CreatePosterDiscount(ctx, rule)
	if err != nil {
		return domain.PosterDiscount{}, s.translate("create poster discount", err)
	}

	s.mu.Lock()
	if s.findPosterDiscountLocked(created.PosterType, created.Size) != nil {
		s.logger(ctx, "pricing.duplicate_discount", map[string]any{
			"posterType": created.PosterType,
			"size":       created.Size,
		})
	}
	s.posterDiscounts = append(s.posterDiscounts, created)
	s.mu.Unlock()
	return created, nil
}

// RemovePosterDiscount deletes the rule upstream, then drops it from the cache.
func (s *DiscountRulesStore) RemovePosterDiscount(ctx context.Context, id int64) error {
	if s == nil || s.client == nil {
		return ErrDiscountUnavailable
	}
	if err := s.client.DeletePosterDiscount(ctx, id); err != nil {
		return s.translate("delete poster discount", err)
	}

	s.mu.Lock()
	kept := s.posterDiscounts[:0]
	for _, rule := range s.posterDiscounts {
		if rule.ID != id {
			kept = append(kept, rule)
		}
	}
	s.posterDiscounts = kept
	s.mu.Unlock()
	return nil
}

// AddPromoCode creates the promo upstream and caches the stored record.
func (s *DiscountRulesStore) AddPromoCode(ctx context.Context, promo domain.PromoCode) (domain.PromoCode, error) {
	if s == nil || s.client == nil {
		return domain.PromoCode{}, ErrDiscountUnavailable
	}

	promo.Code = strings.TrimSpace(promo.Code)
	if promo.Code == "" {
		return domain.PromoCode{}, fmt.Errorf("%w: code is required", ErrDiscountInvalidInput)
	}
	if promo.Percent < 0 || promo.Percent > 100 || promo.Amount < 0 {
		return domain.PromoCode{}, fmt.Errorf("%w: percent must be 0-100 and amount non-negative", ErrDiscountInvalidInput)
	}

	created, err := s.client.CreatePromoCode(ctx, promo)
	if err != nil {
		return domain.PromoCode{}, s.translate("create promo code", err)
	}

	s.mu.Lock()
	s.promoCodes = append(s.promoCodes, created)
	s.mu.Unlock()
	return created, nil
}

// RemovePromoCode deletes the promo upstream, then drops it from the cache.
func (s *DiscountRulesStore) RemovePromoCode(ctx context.Context, id int64) error {
	if s == nil || s.client == nil {
		return ErrDiscountUnavailable
	}
	if err := s.client.DeletePromoCode(ctx, id); err != nil {
		return s.translate("delete promo code", err)
	}

	s.mu.Lock()
	kept := s.promoCodes[:0]
	for _, promo := range s.promoCodes {
		if promo.ID != id {
			kept = append(kept, promo)
		}
	}
	s.promoCodes = kept
	s.mu.Unlock()
	return nil
}

// PosterDiscounts returns a snapshot of the cached rules.
func (s *DiscountRulesStore) PosterDiscounts() []domain.PosterDiscount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PosterDiscount, len(s.posterDiscounts))
	copy(out, s.posterDiscounts)
	return out
}

// PromoCodes returns a snapshot of the cached promo codes.
func (s *DiscountRulesStore) PromoCodes() []domain.PromoCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PromoCode, len(s.promoCodes))
	copy(out, s.promoCodes)
	return out
}

// FindPosterDiscount returns the first cached rule matching (posterType,
// size). Thickness is not part of the match key.
func (s *DiscountRulesStore) FindPosterDiscount(posterType, size string) (domain.PosterDiscount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rule := s.findPosterDiscountLocked(posterType, size); rule != nil {
		return *rule, true
	}
	return domain.PosterDiscount{}, false
}

// FindPromoCode matches a submitted code case-insensitively.
func (s *DiscountRulesStore) FindPromoCode(code string) (domain.PromoCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, promo := range s.promoCodes {
		if promo.MatchesCode(code) {
			return promo, true
		}
	}
	return domain.PromoCode{}, false
}

func (s *DiscountRulesStore) findPosterDiscountLocked(posterType, size string) *domain.PosterDiscount {
	for i := range s.posterDiscounts {
		if s.posterDiscounts[i].Matches(posterType, size) {
			return &s.posterDiscounts[i]
		}
	}
	return nil
}

func (s *DiscountRulesStore) warnDuplicates(ctx context.Context, discounts []domain.PosterDiscount) {
	seen := make(map[string]bool, len(discounts))
	for _, rule := range discounts {
		key := rule.PosterType + "\x00" + rule.Size
		if seen[key] {
			s.logger(ctx, "pricing.duplicate_discount", map[string]any{
				"posterType": rule.PosterType,
				"size":       rule.Size,
			})
		}
		seen[key] = true
	}
}

func (s *DiscountRulesStore) translate(op string, err error) error {
	switch {
	case repositories.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrDiscountNotFound, op)
	case repositories.IsUnavailable(err):
		return fmt.Errorf("%w: %s: %v", ErrDiscountUnavailable, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
