package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/orderflow-api/internal/application/dto"
	"github.com/jhoicas/orderflow-api/internal/application/notification"
)

// NotificationHandler auditoría de notificaciones de stock bajo.
type NotificationHandler struct {
	notifier *notification.LowStockNotifier
}

func NewNotificationHandler(notifier *notification.LowStockNotifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List godoc
// @Summary      Listar notificaciones
// @Tags         notifications
// @Security     Bearer
// @Produce      json
// @Param        skip   query  int  false  "Desplazamiento"  default(0)
// @Param        limit  query  int  false  "Límite (máx 100)"  default(10)
// @Success      200  {object}  dto.NotificationListResponse
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	list, err := h.notifier.List(c.UserContext(), page.Limit, page.Skip)
	if err != nil {
		return writeError(c, err, fiber.StatusConflict)
	}
	out := dto.NotificationListResponse{Items: make([]dto.NotificationResponse, 0, len(list))}
	for _, n := range list {
		out.Items = append(out.Items, dto.NotificationResponse{
			ID:           n.ID,
			Type:         n.Type,
			Channel:      n.Channel,
			RecipientID:  n.RecipientID,
			Subject:      n.Subject,
			Content:      n.Content,
			Status:       n.Status,
			ErrorMessage: n.ErrorMessage,
			Data:         n.Data,
			CreatedAt:    n.CreatedAt,
			SentAt:       n.SentAt,
		})
	}
	out.Page = dto.PageResponse{Skip: page.Skip, Limit: page.Limit, Count: len(out.Items)}
	return c.JSON(out)
}
