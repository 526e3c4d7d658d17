package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo OrderStore sobre PostgreSQL: líneas y dirección como documento JSONB, total en NUMERIC.
type OrderRepo struct {
	q Querier
}

func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, attempt_id, user_id, status, total_price, items, shipping_address, created_at, updated_at`

// Create domain.ErrAlreadyExists si el attempt_id ya fue persistido.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("serializar líneas de la orden: %w", err)
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("serializar dirección de la orden: %w", err)
	}
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.q.Exec(ctx, query, o.ID, o.AttemptID, o.UserID, string(o.Status), o.TotalPrice,
		items, addr, o.CreatedAt, o.UpdatedAt)
	return mapError("create order", err)
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepo) GetByAttemptID(ctx context.Context, attemptID string) (*entity.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE attempt_id = $1`, attemptID)
}

func (r *OrderRepo) getOne(ctx context.Context, query string, arg string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get order", err)
	}
	return o, nil
}

// List más recientes primero. From inclusivo, To exclusivo.
func (r *OrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitArg(f.Limit), offsetArg(f.Skip))
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list orders", err)
	}
	defer rows.Close()

	list := make([]*entity.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapError("scan order", err)
		}
		list = append(list, o)
	}
	return list, mapError("list orders", rows.Err())
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o      entity.Order
		status string
		total  decimal.Decimal
		items  []byte
		addr   []byte
	)
	if err := row.Scan(&o.ID, &o.AttemptID, &o.UserID, &status, &total, &items, &addr, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = entity.OrderStatus(status)
	o.TotalPrice = total
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("líneas de la orden %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("dirección de la orden %s: %w", o.ID, err)
	}
	return &o, nil
}
