package entity

import "time"

// Tipos de cambio registrados en el historial de inventario.
const (
	ChangeTypeAdd     = "add"
	ChangeTypeUpdate  = "update"
	ChangeTypeReserve = "reserve"
	ChangeTypeRelease = "release"
	ChangeTypeAdjust  = "adjust"
)

// InventoryHistoryEntry registro inmutable de una mutación del ledger.
// Las cantidades se refieren a AvailableQuantity: PreviousQuantity + QuantityChange == NewQuantity.
type InventoryHistoryEntry struct {
	ID               string
	ProductID        string
	QuantityChange   int
	PreviousQuantity int
	NewQuantity      int
	ChangeType       string
	ReferenceID      string // opcional: id de orden o intento
	Timestamp        time.Time
}
