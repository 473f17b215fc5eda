package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	domain "github.com/posterlane/api/internal/domain"
)

func TestValidateCartEmpty(t *testing.T) {
	result := DefaultOrderPolicy().ValidateCart(nil)
	if result.IsValid || result.Message != EmptyCartMessage {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateCartPolicyTable(t *testing.T) {
	policy := DefaultOrderPolicy()

	cases := []struct {
		name      string
		items     []domain.CartItem
		wantValid bool
		wantMsg   string
	}{
		{
			name:      "unconstrained type any quantity",
			items:     []domain.CartItem{{PosterType: "PVC Board Poster", Size: "24x18", Quantity: 1}},
			wantValid: true,
		},
		{
			name:      "aggregate minimum met",
			items:     []domain.CartItem{{PosterType: "PVC Poster", Size: "12x18", Quantity: 3}},
			wantValid: true,
		},
		{
			name: "aggregate minimum met across sizes",
			items: []domain.CartItem{
				{PosterType: "PVC Poster", Size: "12x18", Quantity: 2},
				{PosterType: "PVC Poster", Size: "24x18", Quantity: 1},
			},
			wantValid: true,
		},
		{
			name: "per-size minimum rescues short aggregate",
			items: []domain.CartItem{
				{PosterType: "PVC Poster", Size: "12x18", Quantity: 2},
			},
			wantValid: true,
		},
		{
			name: "one size below per-size minimum",
			items: []domain.CartItem{
				{PosterType: "PVC Poster", Size: "12x18", Quantity: 1},
				{PosterType: "PVC Poster", Size: "24x18", Quantity: 1},
			},
			wantValid: false,
			wantMsg:   "Minimum order for PVC Poster is 3 pieces, or 2 pieces per size.",
		},
		{
			name:      "sticker below aggregate minimum",
			items:     []domain.CartItem{{PosterType: "Sticker Poster", Size: "24x18", Quantity: 1}},
			wantValid: false,
			wantMsg:   "Minimum order for Sticker Poster is 2 pieces.",
		},
		{
			name: "first violated rule wins",
			items: []domain.CartItem{
				{PosterType: "PVC Poster", Size: "12x18", Quantity: 1},
				{PosterType: "Sticker Poster", Size: "24x18", Quantity: 1},
			},
			wantValid: false,
			wantMsg:   "Minimum order for PVC Poster is 3 pieces, or 2 pieces per size.",
		},
		{
			name: "mixed cart all rules satisfied",
			items: []domain.CartItem{
				{PosterType: "PVC Poster", Size: "12x18", Quantity: 3},
				{PosterType: "Sticker Poster", Size: "24x18", Quantity: 2},
				{PosterType: "PVC Board Poster", Size: "6x8", Quantity: 1},
			},
			wantValid: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := policy.ValidateCart(tc.items)
			if result.IsValid != tc.wantValid || result.Message != tc.wantMsg {
				t.Fatalf("ValidateCart = %+v, want valid=%v msg=%q", result, tc.wantValid, tc.wantMsg)
			}
		})
	}
}

func TestLoadOrderPolicyDefaultsOnEmptyPath(t *testing.T) {
	policy, err := LoadOrderPolicy("")
	if err != nil {
		t.Fatalf("LoadOrderPolicy error: %v", err)
	}
	if len(policy.Rules) != 2 {
		t.Fatalf("expected default policy, got %+v", policy)
	}
}

func TestLoadOrderPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	data := `{"rules": [{"posterType": "Sticker Poster", "minTotalQuantity": 5, "message": "Need 5."}]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	policy, err := LoadOrderPolicy(path)
	if err != nil {
		t.Fatalf("LoadOrderPolicy error: %v", err)
	}

	result := policy.ValidateCart([]domain.CartItem{{PosterType: "Sticker Poster", Size: "24x18", Quantity: 2}})
	if result.IsValid || result.Message != "Need 5." {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLoadOrderPolicyRejectsBadTables(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "missing poster type", data: `{"rules": [{"posterType": " ", "minTotalQuantity": 1, "message": "m"}]}`},
		{name: "duplicate poster type", data: `{"rules": [{"posterType": "A", "minTotalQuantity": 1, "message": "m"}, {"posterType": "A", "minTotalQuantity": 2, "message": "m"}]}`},
		{name: "negative minimum", data: `{"rules": [{"posterType": "A", "minTotalQuantity": -1, "message": "m"}]}`},
		{name: "missing message", data: `{"rules": [{"posterType": "A", "minTotalQuantity": 1, "message": ""}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.json")
			if err := os.WriteFile(path, []byte(tc.data), 0o600); err != nil {
				t.Fatalf("write policy file: %v", err)
			}
			if _, err := LoadOrderPolicy(path); !errors.Is(err, ErrInvalidOrderPolicy) {
				t.Fatalf("expected ErrInvalidOrderPolicy, got %v", err)
			}
		})
	}
}
