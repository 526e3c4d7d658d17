package entity

import "time"

// InventoryRecord estado de stock de un producto: disponible, reservado y umbral de reorden.
// Nunca se elimina físicamente; solo se muta a través del ledger.
type InventoryRecord struct {
	ProductID         string
	AvailableQuantity int
	ReservedQuantity  int
	ReorderThreshold  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLowStock indica si el disponible está en o por debajo del umbral de reorden.
func (r InventoryRecord) IsLowStock() bool {
	return r.AvailableQuantity <= r.ReorderThreshold
}

// Total disponible + reservado.
func (r InventoryRecord) Total() int {
	return r.AvailableQuantity + r.ReservedQuantity
}
