package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductInfo vista canónica de un producto según el catálogo.
type ProductInfo struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ProductCatalog puerto de salida hacia el servicio de productos.
// GetProduct devuelve nil, nil cuando el producto no existe; error solo ante fallas de transporte.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*ProductInfo, error)
}

// UserVerifier puerto de salida hacia el servicio de usuarios.
// Un error de transporte nunca se interpreta como usuario válido.
type UserVerifier interface {
	VerifyUser(ctx context.Context, userID string) (bool, error)
}
