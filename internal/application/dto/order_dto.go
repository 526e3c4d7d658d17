package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest línea de la orden con el precio que el cliente vio.
type OrderItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// AddressDTO dirección de envío.
type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CreateOrderRequest body para POST /orders. AttemptID es alternativo al header Idempotency-Key.
type CreateOrderRequest struct {
	AttemptID       string             `json:"attempt_id,omitempty"`
	UserID          string             `json:"user_id,omitempty"`
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress AddressDTO         `json:"shipping_address"`
}

// OrderItemResponse línea persistida.
type OrderItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderResponse agregado completo de la orden.
type OrderResponse struct {
	ID              string              `json:"id"`
	AttemptID       string              `json:"attempt_id"`
	UserID          string              `json:"user_id"`
	Items           []OrderItemResponse `json:"items"`
	ShippingAddress AddressDTO          `json:"shipping_address"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderListResponse listado filtrado de órdenes.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
