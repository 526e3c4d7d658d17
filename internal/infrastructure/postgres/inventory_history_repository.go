package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var _ repository.InventoryHistoryRepository = (*InventoryHistoryRepo)(nil)

// InventoryHistoryRepo historial append-only; seq conserva el orden de escritura.
type InventoryHistoryRepo struct {
	q Querier
}

func NewInventoryHistoryRepository(q Querier) *InventoryHistoryRepo {
	return &InventoryHistoryRepo{q: q}
}

const historyColumns = `id, product_id, quantity_change, previous_quantity, new_quantity, change_type, COALESCE(reference_id, ''), created_at`

func (r *InventoryHistoryRepo) Append(ctx context.Context, e *entity.InventoryHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_history
			(id, product_id, quantity_change, previous_quantity, new_quantity, change_type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, e.ID, e.ProductID, e.QuantityChange, e.PreviousQuantity,
		e.NewQuantity, e.ChangeType, nullIfEmpty(e.ReferenceID), e.Timestamp)
	return mapError("append inventory history", err)
}

// ListByProduct más recientes primero.
func (r *InventoryHistoryRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.InventoryHistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM inventory_history
		WHERE product_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, productID, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, mapError("list inventory history", err)
	}
	return collectHistory(rows)
}

func (r *InventoryHistoryRepo) ListByReference(ctx context.Context, productID, referenceID string) ([]*entity.InventoryHistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM inventory_history
		WHERE product_id = $1 AND reference_id = $2
		ORDER BY seq`
	rows, err := r.q.Query(ctx, query, productID, referenceID)
	if err != nil {
		return nil, mapError("list inventory history by reference", err)
	}
	return collectHistory(rows)
}

func collectHistory(rows pgx.Rows) ([]*entity.InventoryHistoryEntry, error) {
	defer rows.Close()
	list := make([]*entity.InventoryHistoryEntry, 0)
	for rows.Next() {
		var e entity.InventoryHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.QuantityChange, &e.PreviousQuantity,
			&e.NewQuantity, &e.ChangeType, &e.ReferenceID, &e.Timestamp); err != nil {
			return nil, mapError("scan inventory history", err)
		}
		list = append(list, &e)
	}
	return list, mapError("list inventory history", rows.Err())
}
