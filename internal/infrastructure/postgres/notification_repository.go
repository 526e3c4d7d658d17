package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

// NotificationRepo registro de auditoría de notificaciones.
type NotificationRepo struct {
	q Querier
}

func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("serializar datos de notificación: %w", err)
	}
	query := `
		INSERT INTO notifications
			(id, type, channel, recipient_id, subject, content, status, error_message, data, created_at, updated_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(ctx, query, n.ID, n.Type, n.Channel, n.RecipientID, n.Subject, n.Content, n.Status,
		nullIfEmpty(n.ErrorMessage), data, n.CreatedAt, n.UpdatedAt, n.SentAt)
	return mapError("create notification", err)
}

// UpdateStatus registra sent_at al pasar a sent.
func (r *NotificationRepo) UpdateStatus(ctx context.Context, id, status, errorMessage string) error {
	query := `
		UPDATE notifications
		SET status = $2,
		    error_message = $3,
		    updated_at = now(),
		    sent_at = CASE WHEN $2 = 'sent' THEN now() ELSE sent_at END
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status, nullIfEmpty(errorMessage))
	if err != nil {
		return mapError("update notification status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notificación %s", domain.ErrNotFound, id)
	}
	return nil
}

// List más recientes primero.
func (r *NotificationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT id, type, channel, recipient_id, subject, content, status, COALESCE(error_message, ''),
		       data, created_at, updated_at, sent_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, mapError("list notifications", err)
	}
	defer rows.Close()

	list := make([]*entity.Notification, 0)
	for rows.Next() {
		var (
			n    entity.Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Channel, &n.RecipientID, &n.Subject, &n.Content, &n.Status,
			&n.ErrorMessage, &data, &n.CreatedAt, &n.UpdatedAt, &n.SentAt); err != nil {
			return nil, mapError("scan notification", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, fmt.Errorf("datos de notificación %s: %w", n.ID, err)
			}
		}
		list = append(list, &n)
	}
	return list, mapError("list notifications", rows.Err())
}
