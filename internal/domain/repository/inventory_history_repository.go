package repository

import (
	"context"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// InventoryHistoryRepository puerto append-only del historial de inventario.
type InventoryHistoryRepository interface {
	Append(ctx context.Context, entry *entity.InventoryHistoryEntry) error
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.InventoryHistoryEntry, error)
	// ListByReference devuelve las entradas de un producto con la referencia dada, en orden de escritura.
	ListByReference(ctx context.Context, productID, referenceID string) ([]*entity.InventoryHistoryEntry, error)
}
