package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo implementación de InventoryRepository sobre PostgreSQL (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const inventoryColumns = `product_id, available_quantity, reserved_quantity, reorder_threshold, created_at, updated_at`

func (r *InventoryRepo) Get(ctx context.Context, productID string) (*entity.InventoryRecord, error) {
	return r.get(ctx, `SELECT `+inventoryColumns+` FROM inventory_records WHERE product_id = $1`, productID)
}

// GetForUpdate bloquea la fila hasta el fin de la transacción.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, productID string) (*entity.InventoryRecord, error) {
	return r.get(ctx, `SELECT `+inventoryColumns+` FROM inventory_records WHERE product_id = $1 FOR UPDATE`, productID)
}

func (r *InventoryRepo) get(ctx context.Context, query, productID string) (*entity.InventoryRecord, error) {
	rec, err := scanInventory(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get inventory", err)
	}
	return rec, nil
}

func (r *InventoryRepo) Insert(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		rec.ProductID, rec.AvailableQuantity, rec.ReservedQuantity, rec.ReorderThreshold, rec.CreatedAt, rec.UpdatedAt)
	return mapError("insert inventory", err)
}

func (r *InventoryRepo) Update(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		UPDATE inventory_records
		SET available_quantity = $2, reserved_quantity = $3, reorder_threshold = $4, updated_at = $5
		WHERE product_id = $1`
	tag, err := r.q.Exec(ctx, query,
		rec.ProductID, rec.AvailableQuantity, rec.ReservedQuantity, rec.ReorderThreshold, rec.UpdatedAt)
	if err != nil {
		return mapError("update inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: inventario de %s", domain.ErrNotFound, rec.ProductID)
	}
	return nil
}

func (r *InventoryRepo) List(ctx context.Context, lowStockOnly bool, limit, offset int) ([]*entity.InventoryRecord, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory_records
		WHERE NOT $1 OR available_quantity <= reorder_threshold
		ORDER BY product_id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, lowStockOnly, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, mapError("list inventory", err)
	}
	defer rows.Close()

	list := make([]*entity.InventoryRecord, 0)
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, mapError("scan inventory", err)
		}
		list = append(list, rec)
	}
	return list, mapError("list inventory", rows.Err())
}

func scanInventory(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	if err := row.Scan(&rec.ProductID, &rec.AvailableQuantity, &rec.ReservedQuantity,
		&rec.ReorderThreshold, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
