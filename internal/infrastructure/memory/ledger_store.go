package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/orderflow-api/internal/application/inventory"
	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner                    = (*LedgerStore)(nil)
	_ repository.InventoryRepository        = (*inventoryRepo)(nil)
	_ repository.InventoryHistoryRepository = (*historyRepo)(nil)
)

// LedgerStore almacenamiento en memoria del ledger (STORE_DRIVER=memory y tests).
// Emula SELECT FOR UPDATE con un candado por producto que se mantiene hasta el fin de la transacción;
// no existe un candado global durante la transacción, solo para proteger los mapas.
type LedgerStore struct {
	mu      sync.Mutex
	records map[string]entity.InventoryRecord
	history []entity.InventoryHistoryEntry
	locks   map[string]chan struct{}
}

// NewLedgerStore construye el store vacío.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		records: make(map[string]entity.InventoryRecord),
		locks:   make(map[string]chan struct{}),
	}
}

// Inventory repositorio fuera de transacción (lecturas confirmadas, escrituras autocommit).
func (s *LedgerStore) Inventory() repository.InventoryRepository { return &inventoryRepo{s: s} }

// History repositorio de historial fuera de transacción.
func (s *LedgerStore) History() repository.InventoryHistoryRepository { return &historyRepo{s: s} }

// Run ejecuta fn con repos atados a una transacción; aplica los cambios solo si fn no falla.
func (s *LedgerStore) Run(ctx context.Context, fn func(
	invRepo repository.InventoryRepository,
	historyRepo repository.InventoryHistoryRepository,
) error) error {
	t := &tx{
		held:    make(map[string]bool),
		records: make(map[string]entity.InventoryRecord),
	}
	defer s.releaseAll(t)

	if err := fn(&inventoryRepo{s: s, tx: t}, &historyRepo{s: s, tx: t}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range t.records {
		s.records[id] = rec
	}
	s.history = append(s.history, t.history...)
	return nil
}

type tx struct {
	held    map[string]bool
	records map[string]entity.InventoryRecord
	history []entity.InventoryHistoryEntry
}

func (s *LedgerStore) lockChan(productID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[productID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[productID] = ch
	}
	return ch
}

// acquire toma el candado del producto para la transacción (reentrante dentro de la misma tx).
func (s *LedgerStore) acquire(ctx context.Context, t *tx, productID string) error {
	if t == nil || t.held[productID] {
		return nil
	}
	select {
	case s.lockChan(productID) <- struct{}{}:
		t.held[productID] = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LedgerStore) releaseAll(t *tx) {
	for productID := range t.held {
		<-s.lockChan(productID)
	}
}

func (s *LedgerStore) committed(productID string) (entity.InventoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[productID]
	return rec, ok
}

// ── InventoryRepository ─────────────────────────────────────────────────────

type inventoryRepo struct {
	s  *LedgerStore
	tx *tx
}

func (r *inventoryRepo) Get(_ context.Context, productID string) (*entity.InventoryRecord, error) {
	if r.tx != nil {
		if rec, ok := r.tx.records[productID]; ok {
			return &rec, nil
		}
	}
	rec, ok := r.s.committed(productID)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *inventoryRepo) GetForUpdate(ctx context.Context, productID string) (*entity.InventoryRecord, error) {
	if err := r.s.acquire(ctx, r.tx, productID); err != nil {
		return nil, err
	}
	return r.Get(ctx, productID)
}

func (r *inventoryRepo) Insert(ctx context.Context, rec *entity.InventoryRecord) error {
	if err := r.s.acquire(ctx, r.tx, rec.ProductID); err != nil {
		return err
	}
	existing, _ := r.Get(ctx, rec.ProductID)
	if existing != nil {
		return domain.ErrAlreadyExists
	}
	if r.tx == nil {
		r.s.mu.Lock()
		r.s.records[rec.ProductID] = *rec
		r.s.mu.Unlock()
		return nil
	}
	r.tx.records[rec.ProductID] = *rec
	return nil
}

func (r *inventoryRepo) Update(ctx context.Context, rec *entity.InventoryRecord) error {
	existing, _ := r.Get(ctx, rec.ProductID)
	if existing == nil {
		return domain.ErrNotFound
	}
	if r.tx == nil {
		r.s.mu.Lock()
		r.s.records[rec.ProductID] = *rec
		r.s.mu.Unlock()
		return nil
	}
	r.tx.records[rec.ProductID] = *rec
	return nil
}

func (r *inventoryRepo) List(_ context.Context, lowStockOnly bool, limit, offset int) ([]*entity.InventoryRecord, error) {
	r.s.mu.Lock()
	ids := make([]string, 0, len(r.s.records))
	for id, rec := range r.s.records {
		if lowStockOnly && !rec.IsLowStock() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]*entity.InventoryRecord, 0, len(ids))
	for _, id := range ids {
		rec := r.s.records[id]
		list = append(list, &rec)
	}
	r.s.mu.Unlock()
	return page(list, limit, offset), nil
}

// ── InventoryHistoryRepository ──────────────────────────────────────────────

type historyRepo struct {
	s  *LedgerStore
	tx *tx
}

func (r *historyRepo) Append(_ context.Context, entry *entity.InventoryHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if r.tx == nil {
		r.s.mu.Lock()
		r.s.history = append(r.s.history, *entry)
		r.s.mu.Unlock()
		return nil
	}
	r.tx.history = append(r.tx.history, *entry)
	return nil
}

func (r *historyRepo) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.InventoryHistoryEntry, error) {
	all := r.snapshot(productID)
	// más recientes primero
	out := make([]*entity.InventoryHistoryEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return page(out, limit, offset), nil
}

func (r *historyRepo) ListByReference(_ context.Context, productID, referenceID string) ([]*entity.InventoryHistoryEntry, error) {
	var out []*entity.InventoryHistoryEntry
	for _, e := range r.snapshot(productID) {
		if e.ReferenceID == referenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// snapshot historial confirmado del producto seguido de lo pendiente en la tx, en orden de escritura.
func (r *historyRepo) snapshot(productID string) []*entity.InventoryHistoryEntry {
	r.s.mu.Lock()
	var out []*entity.InventoryHistoryEntry
	for i := range r.s.history {
		if r.s.history[i].ProductID == productID {
			e := r.s.history[i]
			out = append(out, &e)
		}
	}
	r.s.mu.Unlock()
	if r.tx != nil {
		for i := range r.tx.history {
			if r.tx.history[i].ProductID == productID {
				e := r.tx.history[i]
				out = append(out, &e)
			}
		}
	}
	return out
}

// page aplica limit/offset; limit <= 0 devuelve todo desde offset.
func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
