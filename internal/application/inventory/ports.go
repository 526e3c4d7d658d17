package inventory

import (
	"context"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que el registro y su entrada de historial se escriben en la misma unidad atómica.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		invRepo repository.InventoryRepository,
		historyRepo repository.InventoryHistoryRepository,
	) error) error
}

// LowStockNotifier recibe el registro ya confirmado cuando el disponible cruza el umbral.
// No debe bloquear ni fallar la mutación que lo disparó.
type LowStockNotifier interface {
	Notify(ctx context.Context, rec entity.InventoryRecord)
}
