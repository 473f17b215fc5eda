package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/repositories"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	cases := []string{"", "   ", "not a url", "/relative/only"}
	for _, base := range cases {
		if _, err := NewClient(base); err == nil {
			t.Fatalf("expected error for base url %q", base)
		}
	}
}

func TestListPosterDiscounts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/discounts/posters" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 7, "posterType": "Sticker Poster", "size": "24x18", "percent": 10, "amount": 20}]`))
	}))

	got, err := client.ListPosterDiscounts(context.Background())
	if err != nil {
		t.Fatalf("ListPosterDiscounts error: %v", err)
	}
	want := domain.PosterDiscount{ID: 7, PosterType: "Sticker Poster", Size: "24x18", Percent: 10, Amount: 20}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected discounts: %+v", got)
	}
}

func TestCreatePosterDiscountSendsPayloadAndReturnsStoredRecord(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/discounts/posters" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["posterType"] != "PVC Poster" || payload["size"] != "12x18" {
			t.Fatalf("unexpected payload: %v", payload)
		}
		if _, ok := payload["id"]; ok {
			t.Fatalf("create payload must not carry an id: %v", payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 12, "posterType": "PVC Poster", "size": "12x18", "percent": 5, "amount": 0}`))
	}))

	created, err := client.CreatePosterDiscount(context.Background(), domain.PosterDiscount{
		PosterType: "PVC Poster", Size: "12x18", Percent: 5,
	})
	if err != nil {
		t.Fatalf("CreatePosterDiscount error: %v", err)
	}
	if created.ID != 12 || created.Percent != 5 {
		t.Fatalf("unexpected created record: %+v", created)
	}
}

func TestDeletePosterDiscountNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/discounts/posters/99" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "Not found"}`))
	}))

	err := client.DeletePosterDiscount(context.Background(), 99)
	if err == nil {
		t.Fatal("expected error")
	}
	if !repositories.IsNotFound(err) {
		t.Fatalf("expected not-found categorisation, got %v", err)
	}
	if repositories.IsUnavailable(err) {
		t.Fatalf("404 must not categorise as unavailable: %v", err)
	}
}

func TestCreatePromoCodeConflictSurfacesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Code already exists"}`))
	}))

	_, err := client.CreatePromoCode(context.Background(), domain.PromoCode{Code: "SAVE50", Amount: 50})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "Code already exists" {
		t.Fatalf("unexpected error details: %+v", apiErr)
	}
}

func TestServerErrorCategorisesAsUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.ListPromoCodes(context.Background())
	if !repositories.IsUnavailable(err) {
		t.Fatalf("expected unavailable categorisation, got %v", err)
	}
}

func TestTransportFailureCategorisesAsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	server.Close()

	_, err = client.ListPosterDiscounts(context.Background())
	if !repositories.IsUnavailable(err) {
		t.Fatalf("expected unavailable categorisation, got %v", err)
	}
}

func TestSubmitOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var payload orderRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Name != "Nadia" || payload.City != "Dhaka" || payload.TotalPrice != 556 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		if len(payload.Items) != 1 || payload.Items[0].Type != "Sticker Poster" || payload.Items[0].Quantity != 2 {
			t.Fatalf("unexpected items: %+v", payload.Items)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message": "Order placed", "order_id": "#A1B2C3"}`))
	}))

	order := domain.Order{
		ClientRef: "01HZX",
		Contact: domain.OrderContact{
			Name: "Nadia", Phone: "01700000000", Address: "12 Lake Rd", City: "Dhaka",
		},
		PaymentMethod: "cod",
		Items: []domain.CartItem{
			{Title: "Night Sky", PosterType: "Sticker Poster", Size: "24x18", UnitPrice: 270, Quantity: 2},
		},
		GrandTotal: 556,
	}

	orderID, err := client.SubmitOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if orderID != "#A1B2C3" {
		t.Fatalf("unexpected order id %q", orderID)
	}
}

func TestSubmitOrderMissingOrderID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message": "Order placed"}`))
	}))

	if _, err := client.SubmitOrder(context.Background(), domain.Order{}); err == nil {
		t.Fatal("expected error for missing order_id")
	}
}
