package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/posterlane/api/internal/catalog"
	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart store: repository is required")
	errCartCatalogRequired    = errors.New("cart store: catalog is required")

	// ErrCartInvalidInput indicates the caller supplied a draft the store
	// cannot normalise into a cart line.
	ErrCartInvalidInput = errors.New("cart store: invalid input")
)

// CartStoreDeps wires persistence, pricing data, and observability for the
// cart store.
type CartStoreDeps struct {
	Repository  repositories.CartStateRepository
	Catalog     *catalog.Catalog
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

// CartStore is the single owner of the live cart. All mutations go through
// it; the repository holds a derived mirror written after every mutation and
// read once at construction.
type CartStore struct {
	mu    sync.Mutex
	state domain.CartState

	repo    repositories.CartStateRepository
	catalog *catalog.Catalog
	newID   func() string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// CartDraft is the raw line a caller wants added: either a catalog selection
// or the result of a custom upload (identified by CustomOrderRef). UnitPrice
// may be zero for catalog selections, in which case the store resolves it
// from the price catalog.
type CartDraft struct {
	Title          string
	Image          string
	PosterType     string
	Size           string
	Thickness      string
	UnitPrice      int64
	Quantity       int
	CustomOrderRef string
}

// NewCartStore restores the persisted cart and returns a ready store.
// Malformed persisted state is discarded with a log line and never fails
// construction; an unreachable repository at startup likewise degrades to an
// empty cart.
func NewCartStore(ctx context.Context, deps CartStoreDeps) (*CartStore, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	store := &CartStore{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		newID:   idGen,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}

	state, err := deps.Repository.Load(ctx)
	switch {
	case err == nil:
		store.state = state
	case errors.Is(err, repositories.ErrCorruptState):
		logger(ctx, "cart.restore_discarded", map[string]any{"error": err.Error()})
	default:
		logger(ctx, "cart.restore_failed", map[string]any{"error": err.Error()})
	}

	return store, nil
}

// AddItem normalises the draft into a CartItem and appends it. Custom
// uploads are titled from the naming sequence ("Custom#01", "Custom#02", ...)
// which counts every custom item ever added, not the live count.
func (s *CartStore) AddItem(ctx context.Context, draft CartDraft) (domain.CartItem, error) {
	if s == nil || s.repo == nil {
		return domain.CartItem{}, errCartRepositoryRequired
	}

	posterType := strings.TrimSpace(draft.PosterType)
	size := strings.TrimSpace(draft.Size)
	if posterType == "" || size == "" {
		return domain.CartItem{}, fmt.Errorf("%w: poster type and size are required", ErrCartInvalidInput)
	}
	if draft.UnitPrice < 0 {
		return domain.CartItem{}, fmt.Errorf("%w: negative unit price", ErrCartInvalidInput)
	}

	unitPrice := draft.UnitPrice
	if unitPrice == 0 {
		price, found := s.catalog.LookupPrice(posterType, draft.Thickness, size)
		if !found {
			return domain.CartItem{}, fmt.Errorf("%w: no catalog price for %s %s %s", ErrCartInvalidInput, posterType, draft.Thickness, size)
		}
		unitPrice = price
	}

	quantity := draft.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	title := draft.Title
	if draft.CustomOrderRef != "" {
		s.state.CustomCounter++
		title = fmt.Sprintf("Custom#%02d", s.state.CustomCounter)
	}

	item := domain.CartItem{
		ID:             s.newID(),
		Title:          title,
		Image:          draft.Image,
		PosterType:     posterType,
		Size:           size,
		Thickness:      strings.TrimSpace(draft.Thickness),
		UnitPrice:      unitPrice,
		Quantity:       quantity,
		CustomOrderRef: draft.CustomOrderRef,
		AddedAt:        s.now(),
	}
	s.state.Items = append(s.state.Items, item)
	s.persistLocked(ctx)
	return item, nil
}

// RemoveItem deletes the line at index, preserving the order of the rest.
// An out-of-range index is a no-op.
func (s *CartStore) RemoveItem(ctx context.Context, index int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.state.Items) {
		return
	}
	s.state.Items = append(s.state.Items[:index], s.state.Items[index+1:]...)
	s.persistLocked(ctx)
}

// UpdateQuantity replaces the quantity of the line at index. A quantity of
// zero or less removes the line, so UpdateQuantity(i, 0) and RemoveItem(i)
// leave identical state. An out-of-range index is a no-op.
func (s *CartStore) UpdateQuantity(ctx context.Context, index, quantity int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.state.Items) {
		return
	}
	if quantity <= 0 {
		s.state.Items = append(s.state.Items[:index], s.state.Items[index+1:]...)
	} else {
		s.state.Items[index].Quantity = quantity
	}
	s.persistLocked(ctx)
}

// Clear empties the cart and resets the custom naming sequence, so the next
// custom upload is titled "Custom#01" again.
func (s *CartStore) Clear(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.CartState{}
	s.persistLocked(ctx)
}

// Items returns a snapshot of the cart lines in insertion order.
func (s *CartStore) Items() []domain.CartItem {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone().Items
}

// State returns a snapshot of the full cart state.
func (s *CartStore) State() domain.CartState {
	if s == nil {
		return domain.CartState{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// persistLocked mirrors the state to durable storage. Persistence is derived
// state: a failed write keeps the in-memory cart authoritative and is logged
// rather than surfaced, so a flaky disk never blocks shopping.
func (s *CartStore) persistLocked(ctx context.Context) {
	if err := s.repo.Save(ctx, s.state.Clone()); err != nil {
		s.logger(ctx, "cart.persist_failed", map[string]any{
			"error": err.Error(),
			"items": len(s.state.Items),
		})
	}
}
