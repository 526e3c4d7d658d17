package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

// NotificationRepo registro de notificaciones en memoria.
type NotificationRepo struct {
	mu    sync.RWMutex
	items []*entity.Notification
}

// NewNotificationRepository construye el repositorio vacío.
func NewNotificationRepository() *NotificationRepo {
	return &NotificationRepo{}
}

func (r *NotificationRepo) Create(_ context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	c := *n
	r.mu.Lock()
	r.items = append(r.items, &c)
	r.mu.Unlock()
	return nil
}

func (r *NotificationRepo) UpdateStatus(_ context.Context, id, status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID != id {
			continue
		}
		now := time.Now().UTC()
		n.Status = status
		n.ErrorMessage = errorMessage
		n.UpdatedAt = now
		if status == entity.NotificationStatusSent {
			n.SentAt = &now
		}
		return nil
	}
	return domain.ErrNotFound
}

// List más recientes primero.
func (r *NotificationRepo) List(_ context.Context, limit, offset int) ([]*entity.Notification, error) {
	r.mu.RLock()
	out := make([]*entity.Notification, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		c := *r.items[i]
		out = append(out, &c)
	}
	r.mu.RUnlock()
	return page(out, limit, offset), nil
}
