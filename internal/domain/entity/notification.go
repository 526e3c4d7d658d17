package entity

import "time"

// Tipos, canales y estados de notificación.
const (
	NotificationTypeLowStock = "low_stock"

	NotificationChannelEmail = "email"

	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification registro de auditoría de una notificación (pending -> sent | failed).
type Notification struct {
	ID           string
	Type         string
	Channel      string
	RecipientID  string
	Subject      string
	Content      string
	Status       string
	ErrorMessage string
	Data         map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SentAt       *time.Time
}
