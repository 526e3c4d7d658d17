package inventory

import (
	"fmt"
	"time"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// Reglas puras del ledger: reciben el registro actual y devuelven el registro mutado
// junto con la entrada de historial que documenta el cambio. No tocan persistencia.

// NewRecord crea el registro inicial (reservado = 0) y la entrada "add".
func NewRecord(productID string, initialQuantity, reorderThreshold int, now time.Time) (entity.InventoryRecord, entity.InventoryHistoryEntry, error) {
	if productID == "" || initialQuantity < 0 || reorderThreshold < 0 {
		return entity.InventoryRecord{}, entity.InventoryHistoryEntry{}, domain.ErrInvalidInput
	}
	rec := entity.InventoryRecord{
		ProductID:         productID,
		AvailableQuantity: initialQuantity,
		ReservedQuantity:  0,
		ReorderThreshold:  reorderThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	entry := historyEntry(productID, 0, initialQuantity, entity.ChangeTypeAdd, "", now)
	return rec, entry, nil
}

// ApplyReserve mueve quantity de disponible a reservado.
func ApplyReserve(rec entity.InventoryRecord, quantity int, referenceID string, now time.Time) (entity.InventoryRecord, entity.InventoryHistoryEntry, error) {
	if quantity <= 0 {
		return rec, entity.InventoryHistoryEntry{}, domain.ErrInvalidInput
	}
	if rec.AvailableQuantity < quantity {
		return rec, entity.InventoryHistoryEntry{}, fmt.Errorf("%w: disponible %d, solicitado %d",
			domain.ErrInsufficientStock, rec.AvailableQuantity, quantity)
	}
	prev := rec.AvailableQuantity
	rec.AvailableQuantity -= quantity
	rec.ReservedQuantity += quantity
	rec.UpdatedAt = now
	return rec, historyEntry(rec.ProductID, prev, rec.AvailableQuantity, entity.ChangeTypeReserve, referenceID, now), nil
}

// ApplyRelease inversa de ApplyReserve: devuelve quantity de reservado a disponible.
func ApplyRelease(rec entity.InventoryRecord, quantity int, referenceID string, now time.Time) (entity.InventoryRecord, entity.InventoryHistoryEntry, error) {
	if quantity <= 0 {
		return rec, entity.InventoryHistoryEntry{}, domain.ErrInvalidInput
	}
	if rec.ReservedQuantity < quantity {
		return rec, entity.InventoryHistoryEntry{}, fmt.Errorf("%w: reservado %d, a liberar %d",
			domain.ErrInvalidState, rec.ReservedQuantity, quantity)
	}
	prev := rec.AvailableQuantity
	rec.ReservedQuantity -= quantity
	rec.AvailableQuantity += quantity
	rec.UpdatedAt = now
	return rec, historyEntry(rec.ProductID, prev, rec.AvailableQuantity, entity.ChangeTypeRelease, referenceID, now), nil
}

// ApplyAdjust corrección directa del operador (reposición, merma). Solo exige disponible >= 0.
func ApplyAdjust(rec entity.InventoryRecord, delta int, changeType string, now time.Time) (entity.InventoryRecord, entity.InventoryHistoryEntry, error) {
	if delta == 0 {
		return rec, entity.InventoryHistoryEntry{}, domain.ErrInvalidInput
	}
	switch changeType {
	case entity.ChangeTypeAdjust, entity.ChangeTypeAdd, entity.ChangeTypeUpdate:
	default:
		return rec, entity.InventoryHistoryEntry{}, fmt.Errorf("%w: tipo de cambio %q no permitido en ajuste",
			domain.ErrInvalidInput, changeType)
	}
	if rec.AvailableQuantity+delta < 0 {
		return rec, entity.InventoryHistoryEntry{}, fmt.Errorf("%w: disponible %d, ajuste %d",
			domain.ErrInsufficientStock, rec.AvailableQuantity, delta)
	}
	prev := rec.AvailableQuantity
	rec.AvailableQuantity += delta
	rec.UpdatedAt = now
	return rec, historyEntry(rec.ProductID, prev, rec.AvailableQuantity, changeType, "", now), nil
}

// ApplySetAvailable fija el disponible a un valor absoluto (actualización parcial).
// changed es false cuando el valor no cambia y no corresponde entrada de historial.
func ApplySetAvailable(rec entity.InventoryRecord, available int, now time.Time) (entity.InventoryRecord, entity.InventoryHistoryEntry, bool, error) {
	if available < 0 {
		return rec, entity.InventoryHistoryEntry{}, false, domain.ErrInvalidInput
	}
	if available == rec.AvailableQuantity {
		return rec, entity.InventoryHistoryEntry{}, false, nil
	}
	prev := rec.AvailableQuantity
	rec.AvailableQuantity = available
	rec.UpdatedAt = now
	return rec, historyEntry(rec.ProductID, prev, available, entity.ChangeTypeUpdate, "", now), true, nil
}

// VerifyMutation comprueba las invariantes entre el registro resultante y su entrada de historial.
func VerifyMutation(rec entity.InventoryRecord, entry entity.InventoryHistoryEntry) error {
	if rec.AvailableQuantity < 0 || rec.ReservedQuantity < 0 {
		return fmt.Errorf("%w: cantidades negativas en %s (disponible %d, reservado %d)",
			domain.ErrCorruption, rec.ProductID, rec.AvailableQuantity, rec.ReservedQuantity)
	}
	if entry.ProductID != rec.ProductID {
		return fmt.Errorf("%w: historial de %s aplicado a %s", domain.ErrCorruption, entry.ProductID, rec.ProductID)
	}
	if entry.PreviousQuantity+entry.QuantityChange != entry.NewQuantity {
		return fmt.Errorf("%w: %d %+d != %d en %s", domain.ErrCorruption,
			entry.PreviousQuantity, entry.QuantityChange, entry.NewQuantity, rec.ProductID)
	}
	if entry.NewQuantity != rec.AvailableQuantity {
		return fmt.Errorf("%w: historial indica %d pero el registro tiene %d en %s", domain.ErrCorruption,
			entry.NewQuantity, rec.AvailableQuantity, rec.ProductID)
	}
	return nil
}

func historyEntry(productID string, prev, next int, changeType, referenceID string, now time.Time) entity.InventoryHistoryEntry {
	return entity.InventoryHistoryEntry{
		ProductID:        productID,
		QuantityChange:   next - prev,
		PreviousQuantity: prev,
		NewQuantity:      next,
		ChangeType:       changeType,
		ReferenceID:      referenceID,
		Timestamp:        now,
	}
}
