package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/posterlane/api/internal/catalog"
	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/repositories"
)

type fakeCartRepo struct {
	loadState domain.CartState
	loadErr   error
	saveErr   error
	saved     []domain.CartState
}

func (f *fakeCartRepo) Load(context.Context) (domain.CartState, error) {
	return f.loadState, f.loadErr
}

func (f *fakeCartRepo) Save(_ context.Context, state domain.CartState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, state)
	return nil
}

func newTestCartStore(t *testing.T, repo *fakeCartRepo) *CartStore {
	t.Helper()
	var seq int
	store, err := NewCartStore(context.Background(), CartStoreDeps{
		Repository: repo,
		Catalog:    catalog.Default(),
		Clock:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("item-%03d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewCartStore error: %v", err)
	}
	return store
}

func TestNewCartStoreRestoresPersistedState(t *testing.T) {
	repo := &fakeCartRepo{loadState: domain.CartState{
		Items:         []domain.CartItem{{Title: "Night Sky", PosterType: "Sticker Poster", Size: "24x18", UnitPrice: 270, Quantity: 2}},
		CustomCounter: 4,
	}}
	store := newTestCartStore(t, repo)

	state := store.State()
	if len(state.Items) != 1 || state.CustomCounter != 4 {
		t.Fatalf("unexpected restored state: %+v", state)
	}
}

func TestNewCartStoreDiscardsCorruptState(t *testing.T) {
	var logged []string
	repo := &fakeCartRepo{loadErr: fmt.Errorf("%w: items", repositories.ErrCorruptState)}
	store, err := NewCartStore(context.Background(), CartStoreDeps{
		Repository: repo,
		Catalog:    catalog.Default(),
		Logger: func(_ context.Context, msg string, _ map[string]any) {
			logged = append(logged, msg)
		},
	})
	if err != nil {
		t.Fatalf("corrupt state must not fail construction: %v", err)
	}
	if !store.State().IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", store.State())
	}
	if len(logged) != 1 || logged[0] != "cart.restore_discarded" {
		t.Fatalf("expected restore_discarded log, got %v", logged)
	}
}

func TestAddItemResolvesCatalogPrice(t *testing.T) {
	repo := &fakeCartRepo{}
	store := newTestCartStore(t, repo)

	item, err := store.AddItem(context.Background(), CartDraft{
		Title:      "Night Sky",
		PosterType: "Sticker Poster",
		Size:       "24x18",
		Quantity:   2,
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if item.UnitPrice != 270 || item.Quantity != 2 || item.Title != "Night Sky" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.ID == "" || item.AddedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp: %+v", item)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one persistence write, got %d", len(repo.saved))
	}
}

func TestAddItemEmptyTitleAllowed(t *testing.T) {
	store := newTestCartStore(t, &fakeCartRepo{})

	item, err := store.AddItem(context.Background(), CartDraft{PosterType: "PVC Poster", Size: "12x18"})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if item.Title != "" || item.UnitPrice != 55 || item.Quantity != 1 {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestAddItemRejectsIncompleteSelection(t *testing.T) {
	store := newTestCartStore(t, &fakeCartRepo{})

	cases := []CartDraft{
		{PosterType: "", Size: "12x18"},
		{PosterType: "PVC Poster", Size: ""},
		{PosterType: "PVC Board Poster", Size: "24x18"}, // thickness missing, no price
		{PosterType: "PVC Poster", Size: "12x18", UnitPrice: -5},
	}
	for _, draft := range cases {
		if _, err := store.AddItem(context.Background(), draft); !errors.Is(err, ErrCartInvalidInput) {
			t.Fatalf("expected ErrCartInvalidInput for %+v, got %v", draft, err)
		}
	}
}

func TestAddItemCustomNamingSequence(t *testing.T) {
	store := newTestCartStore(t, &fakeCartRepo{})

	first, err := store.AddItem(context.Background(), CartDraft{
		PosterType: "PVC Board Poster", Thickness: "5mm", Size: "24x18", CustomOrderRef: "ref-1",
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if first.Title != "Custom#01" || first.UnitPrice != 760 {
		t.Fatalf("unexpected first custom item: %+v", first)
	}

	second, err := store.AddItem(context.Background(), CartDraft{
		Title:      "ignored for custom",
		PosterType: "PVC Board Poster", Thickness: "3mm", Size: "24x18", CustomOrderRef: "ref-2",
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if second.Title != "Custom#02" {
		t.Fatalf("expected Custom#02, got %q", second.Title)
	}

	// The sequence survives removals: it counts additions, not live items.
	store.RemoveItem(context.Background(), 0)
	third, err := store.AddItem(context.Background(), CartDraft{
		PosterType: "PVC Board Poster", Thickness: "5mm", Size: "24x18", CustomOrderRef: "ref-3",
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if third.Title != "Custom#03" {
		t.Fatalf("expected Custom#03 after removal, got %q", third.Title)
	}
}

func TestClearResetsCustomSequence(t *testing.T) {
	store := newTestCartStore(t, &fakeCartRepo{})

	for i := 0; i < 3; i++ {
		if _, err := store.AddItem(context.Background(), CartDraft{
			PosterType: "PVC Board Poster", Thickness: "3mm", Size: "12x18", CustomOrderRef: "ref",
		}); err != nil {
			t.Fatalf("AddItem error: %v", err)
		}
	}

	store.Clear(context.Background())
	if !store.State().IsEmpty() {
		t.Fatalf("expected empty cart after Clear, got %+v", store.State())
	}

	item, err := store.AddItem(context.Background(), CartDraft{
		PosterType: "PVC Board Poster", Thickness: "3mm", Size: "12x18", CustomOrderRef: "ref",
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if item.Title != "Custom#01" {
		t.Fatalf("expected Custom#01 after Clear, got %q", item.Title)
	}
}

func TestRemoveItemOutOfRangeIsNoOp(t *testing.T) {
	repo := &fakeCartRepo{}
	store := newTestCartStore(t, repo)
	if _, err := store.AddItem(context.Background(), CartDraft{PosterType: "PVC Poster", Size: "12x18"}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	writes := len(repo.saved)

	store.RemoveItem(context.Background(), -1)
	store.RemoveItem(context.Background(), 5)

	if len(store.Items()) != 1 {
		t.Fatalf("expected cart unchanged, got %d items", len(store.Items()))
	}
	if len(repo.saved) != writes {
		t.Fatalf("out-of-range remove must not persist, writes went %d -> %d", writes, len(repo.saved))
	}
}

func TestUpdateQuantityZeroEquivalentToRemove(t *testing.T) {
	build := func(t *testing.T) *CartStore {
		store := newTestCartStore(t, &fakeCartRepo{})
		for _, draft := range []CartDraft{
			{Title: "A", PosterType: "PVC Poster", Size: "12x18"},
			{Title: "B", PosterType: "Sticker Poster", Size: "24x18"},
			{Title: "C", PosterType: "PVC Poster", Size: "18x30"},
		} {
			if _, err := store.AddItem(context.Background(), draft); err != nil {
				t.Fatalf("AddItem error: %v", err)
			}
		}
		return store
	}

	removed := build(t)
	removed.RemoveItem(context.Background(), 1)

	zeroed := build(t)
	zeroed.UpdateQuantity(context.Background(), 1, 0)

	if !reflect.DeepEqual(removed.State(), zeroed.State()) {
		t.Fatalf("UpdateQuantity(1, 0) diverged from RemoveItem(1):\n%+v\n%+v", removed.State(), zeroed.State())
	}
}

func TestUpdateQuantityChangesLine(t *testing.T) {
	store := newTestCartStore(t, &fakeCartRepo{})
	if _, err := store.AddItem(context.Background(), CartDraft{PosterType: "PVC Poster", Size: "12x18"}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	store.UpdateQuantity(context.Background(), 0, 7)
	if got := store.Items()[0].Quantity; got != 7 {
		t.Fatalf("expected quantity 7, got %d", got)
	}

	store.UpdateQuantity(context.Background(), 9, 3)
	if got := store.Items()[0].Quantity; got != 7 {
		t.Fatalf("out-of-range update must be a no-op, got quantity %d", got)
	}
}

func TestPersistFailureIsLoggedNotFatal(t *testing.T) {
	var logged []string
	repo := &fakeCartRepo{saveErr: errors.New("disk full")}
	store, err := NewCartStore(context.Background(), CartStoreDeps{
		Repository: repo,
		Catalog:    catalog.Default(),
		Logger: func(_ context.Context, msg string, _ map[string]any) {
			logged = append(logged, msg)
		},
	})
	if err != nil {
		t.Fatalf("NewCartStore error: %v", err)
	}

	if _, err := store.AddItem(context.Background(), CartDraft{PosterType: "PVC Poster", Size: "12x18"}); err != nil {
		t.Fatalf("AddItem must succeed despite persist failure: %v", err)
	}
	if len(store.Items()) != 1 {
		t.Fatalf("in-memory cart must stay authoritative, got %d items", len(store.Items()))
	}
	if len(logged) != 1 || logged[0] != "cart.persist_failed" {
		t.Fatalf("expected persist_failed log, got %v", logged)
	}
}

func TestItemsReturnsSnapshot(t *testing.T) {
	store := newTestCartStore(t, &fakeCartRepo{})
	if _, err := store.AddItem(context.Background(), CartDraft{Title: "A", PosterType: "PVC Poster", Size: "12x18"}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	snapshot := store.Items()
	snapshot[0].Title = "mutated"

	if store.Items()[0].Title != "A" {
		t.Fatal("snapshot mutation leaked into the store")
	}
}
