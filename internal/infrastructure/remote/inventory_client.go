package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jhoicas/orderflow-api/internal/application/dto"
	"github.com/jhoicas/orderflow-api/internal/application/order"
	"github.com/jhoicas/orderflow-api/internal/domain"
)

var _ order.StockLedger = (*InventoryClient)(nil)

// InventoryClient cliente del servicio de inventario cuando el ledger vive en otro proceso.
type InventoryClient struct {
	c *Client
}

func NewInventoryClient(c *Client) *InventoryClient {
	return &InventoryClient{c: c}
}

type stockRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"order_id,omitempty"`
}

// Check GET /inventory/check; un producto desconocido es false.
func (i *InventoryClient) Check(ctx context.Context, productID string, quantity int) (bool, error) {
	q := url.Values{}
	q.Set("product_id", productID)
	q.Set("quantity", strconv.Itoa(quantity))
	res, err := i.c.Call(ctx, Request{Method: http.MethodGet, Path: "/inventory/check", Query: q})
	if err != nil {
		return false, err
	}
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if !res.OK() {
		return false, unexpected(i.c.name, res)
	}
	var body struct {
		Available bool `json:"available"`
	}
	if err := res.Decode(&body); err != nil {
		return false, err
	}
	return body.Available, nil
}

// Reserve POST /inventory/reserve. El error se traduce según el código de dto.ErrorResponse.
func (i *InventoryClient) Reserve(ctx context.Context, productID string, quantity int, referenceID string) error {
	return i.mutate(ctx, "/inventory/reserve", stockRequest{ProductID: productID, Quantity: quantity, OrderID: referenceID})
}

// Release POST /inventory/release.
func (i *InventoryClient) Release(ctx context.Context, productID string, quantity int, referenceID string) error {
	return i.mutate(ctx, "/inventory/release", stockRequest{ProductID: productID, Quantity: quantity, OrderID: referenceID})
}

func (i *InventoryClient) mutate(ctx context.Context, path string, body stockRequest) error {
	res, err := i.c.Call(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return err
	}
	if res.OK() {
		return nil
	}
	var apiErr dto.ErrorResponse
	_ = res.Decode(&apiErr)
	target := codeError(apiErr.Code, res.StatusCode)
	if target == nil {
		return unexpected(i.c.name, res)
	}
	return fmt.Errorf("%w: %s x%d (%s): %s", target, body.ProductID, body.Quantity, body.OrderID, apiErr.Message)
}

// codeError traduce el código de error del servicio de inventario; sin código decide el status.
func codeError(code string, status int) error {
	switch code {
	case "INSUFFICIENT_STOCK":
		return domain.ErrInsufficientStock
	case "NOT_FOUND":
		return domain.ErrNotFound
	case "INVALID_STATE":
		return domain.ErrInvalidState
	case "CONFLICT":
		return domain.ErrConflict
	case "VALIDATION", "INVALID_BODY":
		return domain.ErrInvalidInput
	case "UNAVAILABLE":
		return domain.ErrUnreachable
	}
	switch status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrInvalidState
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	}
	return nil
}
