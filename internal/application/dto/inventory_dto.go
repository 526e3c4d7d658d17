package dto

import "time"

// CreateInventoryRequest body para POST /inventory.
type CreateInventoryRequest struct {
	ProductID         string `json:"product_id"`
	AvailableQuantity int    `json:"available_quantity"`
	ReorderThreshold  int    `json:"reorder_threshold"`
}

// UpdateInventoryRequest body para PATCH /inventory/:product_id. Campos ausentes no cambian.
type UpdateInventoryRequest struct {
	AvailableQuantity *int `json:"available_quantity,omitempty"`
	ReorderThreshold  *int `json:"reorder_threshold,omitempty"`
}

// AdjustInventoryRequest body para POST /inventory/:product_id/adjust (delta con signo).
type AdjustInventoryRequest struct {
	Delta      int    `json:"delta"`
	ChangeType string `json:"change_type,omitempty"` // adjust (defecto) | add
}

// StockRequest body para POST /inventory/reserve y /inventory/release.
// OrderID es el reference_id que hace idempotente la operación.
type StockRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"order_id,omitempty"`
}

// InventoryResponse registro de inventario.
type InventoryResponse struct {
	ProductID         string    `json:"product_id"`
	AvailableQuantity int       `json:"available_quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	ReorderThreshold  int       `json:"reorder_threshold"`
	LowStock          bool      `json:"low_stock"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InventoryListResponse listado paginado.
type InventoryListResponse struct {
	Items []InventoryResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// AvailabilityResponse respuesta de GET /inventory/check.
type AvailabilityResponse struct {
	ProductID         string `json:"product_id"`
	Available         bool   `json:"available"`
	CurrentQuantity   int    `json:"current_quantity"`
	RequestedQuantity int    `json:"requested_quantity"`
}

// ReserveResponse respuesta de POST /inventory/reserve.
type ReserveResponse struct {
	Reserved          bool   `json:"reserved"`
	ProductID         string `json:"product_id"`
	Quantity          int    `json:"quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	ReservedQuantity  int    `json:"reserved_quantity"`
}

// ReleaseResponse respuesta de POST /inventory/release.
type ReleaseResponse struct {
	Released          bool   `json:"released"`
	ProductID         string `json:"product_id"`
	Quantity          int    `json:"quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	ReservedQuantity  int    `json:"reserved_quantity"`
}

// HistoryEntryResponse entrada del historial de inventario.
type HistoryEntryResponse struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	QuantityChange   int       `json:"quantity_change"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	ChangeType       string    `json:"change_type"`
	ReferenceID      string    `json:"reference_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// HistoryListResponse historial paginado, más reciente primero.
type HistoryListResponse struct {
	Items []HistoryEntryResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}
