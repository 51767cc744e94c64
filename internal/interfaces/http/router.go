package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/withdrawal"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine       *ledger.Engine
	StockQuery   *ledger.StockQuery
	WithdrawalUC *withdrawal.UseCase
	JWTSecret    string
}

// Router registra las rutas de la API. Todas las operaciones del núcleo exigen
// un actor autenticado; las decisiones de aprobación exigen rol admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Inventario: movimientos, existencias y libro
	inv := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Engine, deps.StockQuery)
	inv.Post("/movements", inventoryHandler.ApplyMovement)
	inv.Get("/", inventoryHandler.ListStock)
	inv.Get("/log", inventoryHandler.ListLedger)
	inv.Get("/:item_id", inventoryHandler.GetQuantity)
	inv.Get("/:item_id/audit", inventoryHandler.Audit)

	// Retiros: documento, disposiciones, devoluciones, cancelación
	wd := protected.Group("/withdrawals")
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalUC)
	wd.Post("/", withdrawalHandler.Create)
	wd.Get("/", withdrawalHandler.List)
	wd.Get("/:id", withdrawalHandler.Get)
	wd.Post("/:id/dispositions", RequireRole("admin"), withdrawalHandler.Dispose)
	wd.Post("/:id/lines/:line_id/return", withdrawalHandler.ReturnLine)
	wd.Post("/:id/cancel", withdrawalHandler.Cancel)
}
