package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jhoicas/orderflow-api/internal/application/ports"
)

var _ ports.ProductCatalog = (*ProductClient)(nil)

// ProductClient cliente del catálogo de productos.
type ProductClient struct {
	c *Client
}

func NewProductClient(c *Client) *ProductClient {
	return &ProductClient{c: c}
}

// GetProduct GET /products/{id}. 404, y 400/422 por id mal formado, devuelven nil, nil.
func (p *ProductClient) GetProduct(ctx context.Context, productID string) (*ports.ProductInfo, error) {
	res, err := p.c.Call(ctx, Request{Method: http.MethodGet, Path: "/products/" + url.PathEscape(productID)})
	if err != nil {
		return nil, err
	}
	switch res.StatusCode {
	case http.StatusNotFound, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return nil, nil
	}
	if !res.OK() {
		return nil, unexpected(p.c.name, res)
	}
	var info ports.ProductInfo
	if err := res.Decode(&info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		info.ID = productID
	}
	return &info, nil
}
