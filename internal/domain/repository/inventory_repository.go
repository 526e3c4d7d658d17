package repository

import (
	"context"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// InventoryRepository puerto de persistencia de los registros de inventario (uno por producto).
// Usado dentro de transacciones del TxRunner para garantizar atomicidad registro + historial.
type InventoryRepository interface {
	// Get devuelve nil, nil si no existe registro para el producto.
	Get(ctx context.Context, productID string) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID string) (*entity.InventoryRecord, error)
	// Insert devuelve domain.ErrAlreadyExists si el producto ya tiene registro.
	Insert(ctx context.Context, rec *entity.InventoryRecord) error
	Update(ctx context.Context, rec *entity.InventoryRecord) error
	List(ctx context.Context, lowStockOnly bool, limit, offset int) ([]*entity.InventoryRecord, error)
}
