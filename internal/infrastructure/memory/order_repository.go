package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo OrderStore en memoria.
type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]entity.Order
}

// NewOrderRepository construye el repositorio vacío.
func NewOrderRepository() *OrderRepo {
	return &OrderRepo{orders: make(map[string]entity.Order)}
}

func (r *OrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.AttemptID != "" {
		for _, o := range r.orders {
			if o.AttemptID == order.AttemptID {
				return domain.ErrAlreadyExists
			}
		}
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepo) GetByAttemptID(_ context.Context, attemptID string) (*entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.AttemptID == attemptID {
			o = cloneOrder(o)
			return &o, nil
		}
	}
	return nil, nil
}

func (r *OrderRepo) List(_ context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	r.mu.RLock()
	var list []*entity.Order
	for _, o := range r.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !o.CreatedAt.Before(*f.To) {
			continue
		}
		c := cloneOrder(o)
		list = append(list, &c)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return page(list, f.Limit, f.Skip), nil
}

func cloneOrder(o entity.Order) entity.Order {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	return o
}
