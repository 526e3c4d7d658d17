package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/orderflow-api/internal/application/ports"
	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	ledgerrules "github.com/jhoicas/orderflow-api/internal/domain/inventory"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

// DefaultConflictRetries intentos ante domain.ErrConflict antes de escalar a ErrUnreachable.
const DefaultConflictRetries = 3

// Ledger motor de inventario: check / reserve / release / adjust / create sobre un registro por producto.
// Cada mutación bloquea la fila del producto (SELECT FOR UPDATE), escribe registro e historial en la
// misma transacción y, ya confirmada, evalúa el umbral de reorden.
type Ledger struct {
	txRunner        TxRunner
	invRepo         repository.InventoryRepository
	historyRepo     repository.InventoryHistoryRepository
	catalog         ports.ProductCatalog
	notifier        LowStockNotifier
	log             zerolog.Logger
	now             func() time.Time
	conflictRetries int
}

// NewLedger construye el ledger. catalog y notifier son opcionales (nil).
func NewLedger(
	txRunner TxRunner,
	invRepo repository.InventoryRepository,
	historyRepo repository.InventoryHistoryRepository,
	catalog ports.ProductCatalog,
	notifier LowStockNotifier,
	log zerolog.Logger,
) *Ledger {
	return &Ledger{
		txRunner:        txRunner,
		invRepo:         invRepo,
		historyRepo:     historyRepo,
		catalog:         catalog,
		notifier:        notifier,
		log:             log.With().Str("component", "inventory_ledger").Logger(),
		now:             func() time.Time { return time.Now().UTC() },
		conflictRetries: DefaultConflictRetries,
	}
}

// Availability resultado de una consulta de disponibilidad.
type Availability struct {
	ProductID         string
	Available         bool
	Found             bool
	CurrentQuantity   int
	RequestedQuantity int
}

// UpdateInput actualización parcial de un registro. Campos nil no se modifican.
type UpdateInput struct {
	AvailableQuantity *int
	ReorderThreshold  *int
}

// Check true si existe registro y el disponible alcanza. Un producto sin registro es false, no error.
func (l *Ledger) Check(ctx context.Context, productID string, quantity int) (bool, error) {
	av, err := l.Availability(ctx, productID, quantity)
	if err != nil {
		return false, err
	}
	return av.Available, nil
}

// Availability igual que Check pero con el detalle que expone GET /inventory/check.
func (l *Ledger) Availability(ctx context.Context, productID string, quantity int) (*Availability, error) {
	if productID == "" || quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	rec, err := l.invRepo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := &Availability{ProductID: productID, RequestedQuantity: quantity}
	if rec == nil {
		return out, nil
	}
	out.Found = true
	out.CurrentQuantity = rec.AvailableQuantity
	out.Available = rec.AvailableQuantity >= quantity
	return out, nil
}

// Get devuelve el registro o domain.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, productID string) (*entity.InventoryRecord, error) {
	rec, err := l.invRepo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// List registros paginados; lowStockOnly filtra disponible <= umbral.
func (l *Ledger) List(ctx context.Context, lowStockOnly bool, limit, offset int) ([]*entity.InventoryRecord, error) {
	return l.invRepo.List(ctx, lowStockOnly, limit, offset)
}

// History entradas de historial de un producto, más recientes primero.
func (l *Ledger) History(ctx context.Context, productID string, limit, offset int) ([]*entity.InventoryHistoryEntry, error) {
	if _, err := l.Get(ctx, productID); err != nil {
		return nil, err
	}
	return l.historyRepo.ListByProduct(ctx, productID, limit, offset)
}

// Create alta del registro de un producto con reservado en 0 y entrada "add".
func (l *Ledger) Create(ctx context.Context, productID string, initialQuantity, reorderThreshold int) (*entity.InventoryRecord, error) {
	if productID == "" || initialQuantity < 0 || reorderThreshold < 0 {
		return nil, domain.ErrInvalidInput
	}
	if l.catalog != nil {
		p, err := l.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: producto %s no existe en el catálogo", domain.ErrNotFound, productID)
		}
	}

	var created entity.InventoryRecord
	err := l.withConflictRetry(ctx, "create", func() error {
		return l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, historyRepo repository.InventoryHistoryRepository) error {
			rec, entry, err := ledgerrules.NewRecord(productID, initialQuantity, reorderThreshold, l.now())
			if err != nil {
				return err
			}
			if err := l.verify(rec, entry); err != nil {
				return err
			}
			if err := invRepo.Insert(ctx, &rec); err != nil {
				return err
			}
			if err := historyRepo.Append(ctx, &entry); err != nil {
				return err
			}
			created = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.log.Info().Str("product_id", productID).Int("available", created.AvailableQuantity).Msg("registro de inventario creado")
	l.afterCommit(ctx, created)
	return &created, nil
}

// Reserve mueve quantity de disponible a reservado. referenceID (intento de orden) hace la operación
// idempotente: repetirla con la misma referencia no vuelve a descontar, y con otra cantidad es ErrInvalidState.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int, referenceID string) (*entity.InventoryRecord, error) {
	if productID == "" || quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return l.mutate(ctx, "reserve", productID, func(rec entity.InventoryRecord, historyRepo repository.InventoryHistoryRepository) (mutation, error) {
		if referenceID != "" {
			reserved, released, err := referenceState(ctx, historyRepo, productID, referenceID)
			if err != nil {
				return mutation{}, err
			}
			if released {
				return mutation{}, fmt.Errorf("%w: la referencia %s ya fue compensada", domain.ErrInvalidState, referenceID)
			}
			if reserved > 0 {
				if reserved != quantity {
					return mutation{}, fmt.Errorf("%w: la referencia %s ya reservó %d, se pidió %d",
						domain.ErrInvalidState, referenceID, reserved, quantity)
				}
				l.log.Debug().Str("product_id", productID).Str("reference_id", referenceID).Msg("reserva ya aplicada, se omite")
				return mutation{record: rec}, nil
			}
		}
		next, entry, err := ledgerrules.ApplyReserve(rec, quantity, referenceID, l.now())
		if err != nil {
			return mutation{}, err
		}
		return mutation{record: next, entry: &entry, persist: true}, nil
	})
}

// Release inversa de Reserve (compensación). Con referencia se libera la cantidad reservada bajo
// ella; liberar dos veces o liberar algo que nunca se reservó bajo esa referencia no tiene efecto.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int, referenceID string) (*entity.InventoryRecord, error) {
	if productID == "" || quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return l.mutate(ctx, "release", productID, func(rec entity.InventoryRecord, historyRepo repository.InventoryHistoryRepository) (mutation, error) {
		if referenceID != "" {
			reserved, released, err := referenceState(ctx, historyRepo, productID, referenceID)
			if err != nil {
				return mutation{}, err
			}
			if released || reserved == 0 {
				l.log.Debug().Str("product_id", productID).Str("reference_id", referenceID).
					Bool("already_released", released).Msg("nada que liberar para la referencia")
				return mutation{record: rec}, nil
			}
			// se libera lo registrado bajo la referencia, no lo que indique el llamador
			quantity = reserved
		}
		next, entry, err := ledgerrules.ApplyRelease(rec, quantity, referenceID, l.now())
		if err != nil {
			return mutation{}, err
		}
		return mutation{record: next, entry: &entry, persist: true}, nil
	})
}

// Adjust corrección de operador (reposición o merma). changeType vacío equivale a "adjust".
func (l *Ledger) Adjust(ctx context.Context, productID string, delta int, changeType string) (*entity.InventoryRecord, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if changeType == "" {
		changeType = entity.ChangeTypeAdjust
	}
	return l.mutate(ctx, "adjust", productID, func(rec entity.InventoryRecord, _ repository.InventoryHistoryRepository) (mutation, error) {
		next, entry, err := ledgerrules.ApplyAdjust(rec, delta, changeType, l.now())
		if err != nil {
			return mutation{}, err
		}
		return mutation{record: next, entry: &entry, persist: true}, nil
	})
}

// Update actualización parcial (admin). Solo agrega historial cuando cambia el disponible.
func (l *Ledger) Update(ctx context.Context, productID string, in UpdateInput) (*entity.InventoryRecord, error) {
	if productID == "" || (in.AvailableQuantity == nil && in.ReorderThreshold == nil) {
		return nil, domain.ErrInvalidInput
	}
	if in.ReorderThreshold != nil && *in.ReorderThreshold < 0 {
		return nil, domain.ErrInvalidInput
	}
	return l.mutate(ctx, "update", productID, func(rec entity.InventoryRecord, _ repository.InventoryHistoryRepository) (mutation, error) {
		m := mutation{record: rec}
		if in.AvailableQuantity != nil {
			next, entry, changed, err := ledgerrules.ApplySetAvailable(rec, *in.AvailableQuantity, l.now())
			if err != nil {
				return mutation{}, err
			}
			if changed {
				m.record = next
				m.entry = &entry
				m.persist = true
			}
		}
		if in.ReorderThreshold != nil && *in.ReorderThreshold != m.record.ReorderThreshold {
			m.record.ReorderThreshold = *in.ReorderThreshold
			m.record.UpdatedAt = l.now()
			m.persist = true
		}
		return m, nil
	})
}

// mutation resultado de aplicar una regla: persist false significa que no hay nada que escribir.
type mutation struct {
	record  entity.InventoryRecord
	entry   *entity.InventoryHistoryEntry
	persist bool
}

type applyFunc func(rec entity.InventoryRecord, historyRepo repository.InventoryHistoryRepository) (mutation, error)

// mutate bloquea el registro, aplica la regla y escribe registro + historial en una sola transacción.
func (l *Ledger) mutate(ctx context.Context, op, productID string, apply applyFunc) (*entity.InventoryRecord, error) {
	var result mutation
	err := l.withConflictRetry(ctx, op, func() error {
		return l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, historyRepo repository.InventoryHistoryRepository) error {
			current, err := invRepo.GetForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("%w: sin registro de inventario para %s", domain.ErrNotFound, productID)
			}
			m, err := apply(*current, historyRepo)
			if err != nil {
				return err
			}
			if !m.persist {
				result = m
				return nil
			}
			if m.entry != nil {
				if err := l.verify(m.record, *m.entry); err != nil {
					return err
				}
			}
			if err := invRepo.Update(ctx, &m.record); err != nil {
				return err
			}
			if m.entry != nil {
				if err := historyRepo.Append(ctx, m.entry); err != nil {
					return err
				}
			}
			result = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if result.persist {
		l.log.Debug().Str("op", op).Str("product_id", productID).
			Int("available", result.record.AvailableQuantity).
			Int("reserved", result.record.ReservedQuantity).Msg("mutación de inventario confirmada")
		l.afterCommit(ctx, result.record)
	}
	rec := result.record
	return &rec, nil
}

// withConflictRetry reintenta fn ante domain.ErrConflict y escala a ErrUnreachable al agotar el cupo.
func (l *Ledger) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if attempt >= l.conflictRetries {
			l.log.Warn().Str("op", op).Int("attempts", attempt).Err(err).Msg("conflictos agotados")
			return fmt.Errorf("%w: %s tras %d conflictos: %v", domain.ErrUnreachable, op, attempt, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		l.log.Debug().Str("op", op).Int("attempt", attempt).Msg("conflicto concurrente, reintentando")
	}
}

func (l *Ledger) verify(rec entity.InventoryRecord, entry entity.InventoryHistoryEntry) error {
	if err := ledgerrules.VerifyMutation(rec, entry); err != nil {
		l.log.Error().Err(err).Str("product_id", rec.ProductID).Msg("invariante del ledger violada")
		return err
	}
	return nil
}

// afterCommit evalúa el umbral fuera de la transacción; el aviso nunca revierte la mutación.
func (l *Ledger) afterCommit(ctx context.Context, rec entity.InventoryRecord) {
	if l.notifier == nil || !rec.IsLowStock() {
		return
	}
	l.notifier.Notify(ctx, rec)
}

// referenceState devuelve la cantidad reservada bajo la referencia (0 si ninguna) y si ya fue liberada.
func referenceState(ctx context.Context, historyRepo repository.InventoryHistoryRepository, productID, referenceID string) (reserved int, released bool, err error) {
	entries, err := historyRepo.ListByReference(ctx, productID, referenceID)
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		switch e.ChangeType {
		case entity.ChangeTypeReserve:
			reserved += -e.QuantityChange
		case entity.ChangeTypeRelease:
			released = true
		}
	}
	return reserved, released, nil
}
