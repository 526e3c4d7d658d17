package repository

import (
	"context"
	"time"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// OrderFilter filtros de listado de órdenes. From es inclusivo y To exclusivo.
type OrderFilter struct {
	Status *entity.OrderStatus
	UserID string
	From   *time.Time
	To     *time.Time
	Skip   int
	Limit  int
}

// OrderRepository puerto del OrderStore: un documento por orden.
type OrderRepository interface {
	// Create asigna ID y timestamps si vienen vacíos. domain.ErrAlreadyExists si el AttemptID ya existe.
	Create(ctx context.Context, order *entity.Order) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	// GetByAttemptID devuelve nil, nil si ningún intento con ese id llegó a persistir.
	GetByAttemptID(ctx context.Context, attemptID string) (*entity.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error)
}
