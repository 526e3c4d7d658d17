package repository

import (
	"context"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// NotificationRepository registro de auditoría de notificaciones.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	UpdateStatus(ctx context.Context, id, status, errorMessage string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Notification, error)
}
