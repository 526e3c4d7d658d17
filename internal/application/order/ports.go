package order

import (
	"context"
	"time"
)

// StockLedger operaciones de inventario que usa la saga. Lo satisfacen el ledger local
// (LocalStock) y el cliente remoto del servicio de inventario.
type StockLedger interface {
	// Check false (sin error) cuando el producto no tiene registro o no alcanza el disponible.
	Check(ctx context.Context, productID string, quantity int) (bool, error)
	Reserve(ctx context.Context, productID string, quantity int, referenceID string) error
	Release(ctx context.Context, productID string, quantity int, referenceID string) error
}

// IdempotencyGuard evita que dos ejecuciones del mismo intento de orden corran a la vez.
type IdempotencyGuard interface {
	// Acquire false si otro proceso ya tiene el intento.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
