package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/orderflow-api/internal/application/dto"
	"github.com/jhoicas/orderflow-api/internal/application/inventory"
	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// InventoryHandler expone el ledger de inventario.
type InventoryHandler struct {
	ledger *inventory.Ledger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// Create godoc
// @Summary      Alta de inventario de un producto
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInventoryRequest  true  "product_id, available_quantity, reorder_threshold"
// @Success      201   {object}  dto.InventoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/inventory [post]
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.ledger.Create(c.UserContext(), in.ProductID, in.AvailableQuantity, in.ReorderThreshold)
	if errors.Is(err, domain.ErrNotFound) {
		// producto desconocido en el catálogo es 400 en el alta
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNKNOWN_PRODUCT", Message: err.Error()})
	}
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}
	return c.Status(fiber.StatusCreated).JSON(toInventoryResponse(rec))
}

// List godoc
// @Summary      Listar inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        skip            query  int   false  "Desplazamiento"  default(0)
// @Param        limit           query  int   false  "Límite (máx 100)"  default(10)
// @Param        low_stock_only  query  bool  false  "Solo disponible <= umbral"
// @Success      200  {object}  dto.InventoryListResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	list, err := h.ledger.List(c.UserContext(), c.QueryBool("low_stock_only", false), page.Limit, page.Skip)
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	out := dto.InventoryListResponse{Items: make([]dto.InventoryResponse, 0, len(list))}
	for _, rec := range list {
		out.Items = append(out.Items, toInventoryResponse(rec))
	}
	out.Page = dto.PageResponse{Skip: page.Skip, Limit: page.Limit, Count: len(out.Items)}
	return c.JSON(out)
}

// Check godoc
// @Summary      Consultar disponibilidad
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true  "Producto"
// @Param        quantity    query  int     true  "Cantidad solicitada"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/check [get]
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	av, err := h.ledger.Availability(c.UserContext(), c.Query("product_id"), c.QueryInt("quantity", 0))
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	return c.JSON(dto.AvailabilityResponse{
		ProductID:         av.ProductID,
		Available:         av.Available,
		CurrentQuantity:   av.CurrentQuantity,
		RequestedQuantity: av.RequestedQuantity,
	})
}

// Reserve godoc
// @Summary      Reservar stock
// @Description  order_id actúa como referencia idempotente: repetir la misma reserva no descuenta dos veces.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockRequest  true  "product_id, quantity, order_id"
// @Success      200   {object}  dto.ReserveResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reserve [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var in dto.StockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.ledger.Reserve(c.UserContext(), in.ProductID, in.Quantity, in.OrderID)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(dto.ReserveResponse{
		Reserved:          true,
		ProductID:         rec.ProductID,
		Quantity:          in.Quantity,
		AvailableQuantity: rec.AvailableQuantity,
		ReservedQuantity:  rec.ReservedQuantity,
	})
}

// Release godoc
// @Summary      Liberar stock reservado
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockRequest  true  "product_id, quantity, order_id"
// @Success      200   {object}  dto.ReleaseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	var in dto.StockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.ledger.Release(c.UserContext(), in.ProductID, in.Quantity, in.OrderID)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(dto.ReleaseResponse{
		Released:          true,
		ProductID:         rec.ProductID,
		Quantity:          in.Quantity,
		AvailableQuantity: rec.AvailableQuantity,
		ReservedQuantity:  rec.ReservedQuantity,
	})
}

// GetByProductID godoc
// @Summary      Inventario de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "Producto"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id} [get]
func (h *InventoryHandler) GetByProductID(c *fiber.Ctx) error {
	rec, err := h.ledger.Get(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	return c.JSON(toInventoryResponse(rec))
}

// Update godoc
// @Summary      Actualización parcial del inventario
// @Description  Cambiar available_quantity agrega una entrada "update" al historial.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id  path  string  true  "Producto"
// @Param        body        body  dto.UpdateInventoryRequest  true  "Campos a cambiar"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id} [patch]
func (h *InventoryHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.ledger.Update(c.UserContext(), c.Params("product_id"), inventory.UpdateInput{
		AvailableQuantity: in.AvailableQuantity,
		ReorderThreshold:  in.ReorderThreshold,
	})
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(toInventoryResponse(rec))
}

// Adjust godoc
// @Summary      Ajuste de operador (reposición o merma)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id  path  string  true  "Producto"
// @Param        body        body  dto.AdjustInventoryRequest  true  "delta con signo"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id}/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	switch in.ChangeType {
	case "", entity.ChangeTypeAdjust, entity.ChangeTypeAdd:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "change_type debe ser adjust o add"})
	}
	rec, err := h.ledger.Adjust(c.UserContext(), c.Params("product_id"), in.Delta, in.ChangeType)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(toInventoryResponse(rec))
}

// History godoc
// @Summary      Historial de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "Producto"
// @Param        skip        query  int     false  "Desplazamiento"  default(0)
// @Param        limit       query  int     false  "Límite (máx 100)"  default(10)
// @Success      200  {object}  dto.HistoryListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id}/history [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	list, err := h.ledger.History(c.UserContext(), c.Params("product_id"), page.Limit, page.Skip)
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	out := dto.HistoryListResponse{Items: make([]dto.HistoryEntryResponse, 0, len(list))}
	for _, e := range list {
		out.Items = append(out.Items, dto.HistoryEntryResponse{
			ID:               e.ID,
			ProductID:        e.ProductID,
			QuantityChange:   e.QuantityChange,
			PreviousQuantity: e.PreviousQuantity,
			NewQuantity:      e.NewQuantity,
			ChangeType:       e.ChangeType,
			ReferenceID:      e.ReferenceID,
			Timestamp:        e.Timestamp,
		})
	}
	out.Page = dto.PageResponse{Skip: page.Skip, Limit: page.Limit, Count: len(out.Items)}
	return c.JSON(out)
}

func toInventoryResponse(rec *entity.InventoryRecord) dto.InventoryResponse {
	return dto.InventoryResponse{
		ProductID:         rec.ProductID,
		AvailableQuantity: rec.AvailableQuantity,
		ReservedQuantity:  rec.ReservedQuantity,
		ReorderThreshold:  rec.ReorderThreshold,
		LowStock:          rec.IsLowStock(),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

// pageFromQuery lee skip/limit con los valores por defecto de los listados.
func pageFromQuery(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Skip: c.QueryInt("skip", 0), Limit: c.QueryInt("limit", dto.DefaultLimit)}
	p.Normalize()
	return p
}
