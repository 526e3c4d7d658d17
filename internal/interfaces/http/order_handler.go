package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/orderflow-api/internal/application/dto"
	"github.com/jhoicas/orderflow-api/internal/application/order"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// HeaderIdempotencyKey identifica el intento de colocación; reintentos con la misma clave no duplican la orden.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler colocación (saga) y consultas de órdenes.
type OrderHandler struct {
	saga   *order.Saga
	orders *order.Service
}

// NewOrderHandler construye el handler.
func NewOrderHandler(saga *order.Saga, orders *order.Service) *OrderHandler {
	return &OrderHandler{saga: saga, orders: orders}
}

// Create godoc
// @Summary      Colocar orden
// @Description  Verifica usuario, precios y stock, reserva todo o nada y persiste la orden en pending.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                  false  "Id del intento (alternativo a attempt_id)"
// @Param        body             body    dto.CreateOrderRequest  true   "items y shipping_address"
// @Success      201  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	userID := GetUserID(c)
	if in.UserID != "" && in.UserID != userID {
		if GetRole(c) != entity.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo admin puede ordenar a nombre de otro usuario"})
		}
		userID = in.UserID
	}
	attemptID := c.Get(HeaderIdempotencyKey)
	if attemptID == "" {
		attemptID = in.AttemptID
	}

	items := make([]entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.Price})
	}
	o, err := h.saga.PlaceOrder(c.UserContext(), order.PlaceOrderInput{
		AttemptID: attemptID,
		UserID:    userID,
		Items:     items,
		ShippingAddress: entity.Address{
			Line1:      in.ShippingAddress.Line1,
			Line2:      in.ShippingAddress.Line2,
			City:       in.ShippingAddress.City,
			State:      in.ShippingAddress.State,
			PostalCode: in.ShippingAddress.PostalCode,
			Country:    in.ShippingAddress.Country,
		},
	})
	if err != nil {
		return writeSagaError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(o))
}

// GetByID godoc
// @Summary      Obtener orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	o, err := h.orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	// la orden de otro usuario no se revela
	if GetRole(c) != entity.RoleAdmin && o.UserID != GetUserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "orden no encontrada"})
	}
	return c.JSON(toOrderResponse(o))
}

// List godoc
// @Summary      Listar órdenes
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        status      query  string  false  "pending | confirmed | cancelled"
// @Param        user_id     query  string  false  "Solo admin; el resto ve sus propias órdenes"
// @Param        start_date  query  string  false  "YYYY-MM-DD inclusive"
// @Param        end_date    query  string  false  "YYYY-MM-DD inclusive"
// @Param        skip        query  int     false  "Desplazamiento"  default(0)
// @Param        limit       query  int     false  "Límite (máx 100)"  default(10)
// @Success      200  {object}  dto.OrderListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	in := order.ListInput{
		Status: c.Query("status"),
		UserID: c.Query("user_id"),
		Skip:   page.Skip,
		Limit:  page.Limit,
	}
	if GetRole(c) != entity.RoleAdmin {
		in.UserID = GetUserID(c)
	}
	var err error
	if in.StartDate, err = parseDate(c.Query("start_date")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "start_date inválida (YYYY-MM-DD)"})
	}
	if in.EndDate, err = parseDate(c.Query("end_date")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "end_date inválida (YYYY-MM-DD)"})
	}
	list, err := h.orders.List(c.UserContext(), in)
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	out := dto.OrderListResponse{Items: make([]dto.OrderResponse, 0, len(list))}
	for _, o := range list {
		out.Items = append(out.Items, toOrderResponse(o))
	}
	out.Page = dto.PageResponse{Skip: page.Skip, Limit: page.Limit, Count: len(out.Items)}
	return c.JSON(out)
}

// parseDate acepta YYYY-MM-DD o RFC3339; vacío es nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func toOrderResponse(o *entity.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
			Subtotal:  it.Subtotal(),
		})
	}
	return dto.OrderResponse{
		ID:        o.ID,
		AttemptID: o.AttemptID,
		UserID:    o.UserID,
		Items:     items,
		ShippingAddress: dto.AddressDTO{
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		TotalPrice: o.TotalPrice,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
