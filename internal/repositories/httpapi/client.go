// Package httpapi implements the clients for the remote storefront API: the
// authoritative discount-rule CRUD endpoints and the order-submission
// endpoint. The engine only caches what these endpoints confirm.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/posterlane/api/internal/domain"
)

const (
	posterDiscountsPath = "/api/discounts/posters"
	promoCodesPath      = "/api/discounts/promo"
	ordersPath          = "/api/orders"

	defaultTimeout     = 15 * time.Second
	maxErrorBodyLength = 512
)

// APIError categorises an upstream failure for the service layer.
type APIError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream api: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("upstream api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream api: status %d", e.Status)
}

// Unwrap exposes the transport error when present.
func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports a 404 from the upstream.
func (e *APIError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IsUnavailable reports a transport failure or upstream 5xx.
func (e *APIError) IsUnavailable() bool { return e.Err != nil || e.Status >= 500 }

// Client calls the remote storefront API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger attaches a logger for request-level diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient validates the base URL and constructs a client with sane
// transport defaults.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("httpapi: base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpapi: invalid base url %q", baseURL)
	}

	client := &Client{
		baseURL: trimmed,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type posterDiscountDTO struct {
	ID         int64   `json:"id,omitempty"`
	PosterType string  `json:"posterType"`
	Size       string  `json:"size"`
	Percent    float64 `json:"percent"`
	Amount     float64 `json:"amount"`
}

type promoCodeDTO struct {
	ID      int64   `json:"id,omitempty"`
	Code    string  `json:"code"`
	Percent float64 `json:"percent"`
	Amount  float64 `json:"amount"`
}

type orderItemDTO struct {
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Type      string `json:"type"`
	Size      string `json:"size"`
	Thickness string `json:"thickness,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	OrderCode string `json:"orderCode,omitempty"`
}

type orderRequestDTO struct {
	Name          string         `json:"name"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone"`
	Address       string         `json:"address"`
	City          string         `json:"city"`
	Thana         string         `json:"thana,omitempty"`
	PostalCode    string         `json:"postal_code,omitempty"`
	PaymentMethod string         `json:"payment_method"`
	PromoCode     string         `json:"promo_code,omitempty"`
	ClientRef     string         `json:"client_ref,omitempty"`
	Items         []orderItemDTO `json:"items"`
	TotalPrice    float64        `json:"total_price"`
}

type orderResponseDTO struct {
	OrderID string `json:"order_id"`
}

// ListPosterDiscounts fetches the full per-poster discount rule set.
func (c *Client) ListPosterDiscounts(ctx context.Context) ([]domain.PosterDiscount, error) {
	var dtos []posterDiscountDTO
	if err := c.do(ctx, http.MethodGet, posterDiscountsPath, nil, http.StatusOK, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.PosterDiscount, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, posterDiscountFromDTO(dto))
	}
	return out, nil
}

// CreatePosterDiscount persists a rule remotely and returns the stored copy
// including its identifier.
func (c *Client) CreatePosterDiscount(ctx context.Context, discount domain.PosterDiscount) (domain.PosterDiscount, error) {
	payload := posterDiscountDTO{
		PosterType: discount.PosterType,
		Size:       discount.Size,
		Percent:    discount.Percent,
		Amount:     discount.Amount,
	}
	var created posterDiscountDTO
	if err := c.do(ctx, http.MethodPost, posterDiscountsPath, payload, http.StatusCreated, &created); err != nil {
		return domain.PosterDiscount{}, err
	}
	return posterDiscountFromDTO(created), nil
}

// DeletePosterDiscount removes a rule by identifier; upstream treats repeat
// deletes as idempotent.
func (c *Client) DeletePosterDiscount(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, posterDiscountsPath+"/"+strconv.FormatInt(id, 10), nil, http.StatusOK, nil)
}

// ListPromoCodes fetches all promo codes.
func (c *Client) ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	var dtos []promoCodeDTO
	if err := c.do(ctx, http.MethodGet, promoCodesPath, nil, http.StatusOK, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.PromoCode, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, promoCodeFromDTO(dto))
	}
	return out, nil
}

// CreatePromoCode persists a promo code remotely.
func (c *Client) CreatePromoCode(ctx context.Context, promo domain.PromoCode) (domain.PromoCode, error) {
	payload := promoCodeDTO{Code: promo.Code, Percent: promo.Percent, Amount: promo.Amount}
	var created promoCodeDTO
	if err := c.do(ctx, http.MethodPost, promoCodesPath, payload, http.StatusCreated, &created); err != nil {
		return domain.PromoCode{}, err
	}
	return promoCodeFromDTO(created), nil
}

// DeletePromoCode removes a promo code by identifier.
func (c *Client) DeletePromoCode(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, promoCodesPath+"/"+strconv.FormatInt(id, 10), nil, http.StatusOK, nil)
}

// SubmitOrder posts the order snapshot and returns the server-issued order
// identifier. There is no retry; the caller surfaces failures as-is.
func (c *Client) SubmitOrder(ctx context.Context, order domain.Order) (string, error) {
	items := make([]orderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDTO{
			Title:     item.Title,
			Image:     item.Image,
			Type:      item.PosterType,
			Size:      item.Size,
			Thickness: item.Thickness,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
			OrderCode: item.CustomOrderRef,
		})
	}
	payload := orderRequestDTO{
		Name:          order.Contact.Name,
		Email:         order.Contact.Email,
		Phone:         order.Contact.Phone,
		Address:       order.Contact.Address,
		City:          order.Contact.City,
		Thana:         order.Contact.Thana,
		PostalCode:    order.Contact.PostalCode,
		PaymentMethod: order.PaymentMethod,
		PromoCode:     order.PromoCode,
		ClientRef:     order.ClientRef,
		Items:         items,
		TotalPrice:    order.GrandTotal,
	}

	var resp orderResponseDTO
	if err := c.do(ctx, http.MethodPost, ordersPath, payload, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.OrderID) == "" {
		return "", &APIError{Status: http.StatusCreated, Message: "order response missing order_id"}
	}
	return resp.OrderID, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, wantStatus int, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return &APIError{Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &APIError{Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &APIError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{Status: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
		c.logger.Warn("upstream returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyLength))
	if err != nil {
		return ""
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(data))
}

func posterDiscountFromDTO(dto posterDiscountDTO) domain.PosterDiscount {
	return domain.PosterDiscount{
		ID:         dto.ID,
		PosterType: dto.PosterType,
		Size:       dto.Size,
		Percent:    dto.Percent,
		Amount:     dto.Amount,
	}
}

func promoCodeFromDTO(dto promoCodeDTO) domain.PromoCode {
	return domain.PromoCode{ID: dto.ID, Code: dto.Code, Percent: dto.Percent, Amount: dto.Amount}
}
