package repositories

import (
	"context"
	"errors"

	domain "github.com/posterlane/api/internal/domain"
)

// RepositoryError wraps low-level persistence and transport failures with
// the categorisation services use to translate them into their own sentinel
// errors.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

// ErrCorruptState marks persisted cart state that could not be decoded. The
// cart store treats it as absent state: corrupt local storage must never
// crash startup or be partially applied.
var ErrCorruptState = errors.New("repositories: corrupt persisted state")

// CartStateRepository mirrors the in-memory cart to durable local storage.
// The stored copy is derived state: written after every mutation, read once
// at startup.
type CartStateRepository interface {
	Load(ctx context.Context) (domain.CartState, error)
	Save(ctx context.Context, state domain.CartState) error
}

// DiscountRuleClient talks to the remote discount authority. Creates return
// the persisted record including its server-assigned identifier; deletes are
// idempotent by identifier.
type DiscountRuleClient interface {
	ListPosterDiscounts(ctx context.Context) ([]domain.PosterDiscount, error)
	CreatePosterDiscount(ctx context.Context, discount domain.PosterDiscount) (domain.PosterDiscount, error)
	DeletePosterDiscount(ctx context.Context, id int64) error

	ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error)
	CreatePromoCode(ctx context.Context, promo domain.PromoCode) (domain.PromoCode, error)
	DeletePromoCode(ctx context.Context, id int64) error
}

// OrderSubmitter accepts the final order snapshot and returns the
// server-issued order identifier.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order domain.Order) (string, error)
}

// IsNotFound reports whether err carries not-found categorisation.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsUnavailable reports whether err carries unavailable categorisation.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
