package dto

import "time"

// NotificationResponse registro de auditoría de una notificación.
type NotificationResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Channel      string         `json:"channel"`
	RecipientID  string         `json:"recipient_id"`
	Subject      string         `json:"subject"`
	Content      string         `json:"content"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
}

// NotificationListResponse listado paginado.
type NotificationListResponse struct {
	Items []NotificationResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}
