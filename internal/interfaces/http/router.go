package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/orderflow-api/internal/application/inventory"
	"github.com/jhoicas/orderflow-api/internal/application/notification"
	"github.com/jhoicas/orderflow-api/internal/application/order"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.Ledger
	Saga      *order.Saga
	Orders    *order.Service
	Notifier  *notification.LowStockNotifier
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(entity.RoleAdmin)

	// Inventory: /check antes de /:product_id
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger)
	invGroup.Post("/", adminOnly, inventoryHandler.Create)
	invGroup.Get("/", inventoryHandler.List)
	invGroup.Get("/check", inventoryHandler.Check)
	invGroup.Post("/reserve", inventoryHandler.Reserve)
	invGroup.Post("/release", inventoryHandler.Release)
	invGroup.Get("/:product_id", inventoryHandler.GetByProductID)
	invGroup.Patch("/:product_id", adminOnly, inventoryHandler.Update)
	invGroup.Post("/:product_id/adjust", adminOnly, inventoryHandler.Adjust)
	invGroup.Get("/:product_id/history", inventoryHandler.History)

	// Orders
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Saga, deps.Orders)
	orders.Post("/", orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)

	// Notifications (auditoría, admin)
	notifications := protected.Group("/notifications", adminOnly)
	notificationHandler := NewNotificationHandler(deps.Notifier)
	notifications.Get("/", notificationHandler.List)
}
