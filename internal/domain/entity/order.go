package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de la orden.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid indica si el estado es uno de los conocidos.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem línea de la orden con el precio unitario validado contra el catálogo.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal precio unitario por cantidad, en aritmética decimal exacta.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address dirección de envío.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order agregado de orden; un documento por orden en el OrderStore.
type Order struct {
	ID              string
	AttemptID       string
	UserID          string
	Items           []OrderItem
	ShippingAddress Address
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder construye una orden en estado pending y calcula TotalPrice sin pasar por float.
func NewOrder(id, attemptID, userID string, items []OrderItem, addr Address, now time.Time) *Order {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return &Order{
		ID:              id,
		AttemptID:       attemptID,
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		TotalPrice:      total,
		Status:          OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
