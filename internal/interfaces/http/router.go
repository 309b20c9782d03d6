package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger      *inventory.StockLedgerUseCase
	Registry    *inventory.RegistryUseCase
	Composition *inventory.CompositionUseCase
	Consumption *inventory.ConsumptionUseCase
	Catalog     *inventory.CatalogUseCase
	Reports     *inventory.ReportUseCase
	JWTSecret   string
	JWTIssuer   string
	Logger      *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Todo /api/v1 requiere Bearer Token: cada mutación se firma con el actor del token.
	api := app.Group("/api/v1", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	registry := NewRegistryHandler(deps.Registry, log)
	api.Get("/units", registry.ListUnits)

	stock := NewStockHandler(deps.Ledger, log)
	stockGroup := api.Group("/stock")
	stockGroup.Post("/in", stock.AddStock)
	stockGroup.Post("/out", stock.ReduceStock)
	stockGroup.Post("/adjustments", stock.AdjustStock)
	stockGroup.Get("/movements", stock.ListMovements)
	stockGroup.Get("/movements/:id", stock.GetMovement)

	ingredients := api.Group("/ingredients")
	ingredients.Get("/:id/batches", stock.ListBatches)
	ingredients.Get("/:id/templates", registry.ListTemplates)
	ingredients.Get("/:id/factor", registry.ResolveFactor)
	ingredients.Get("/:id/suggestion", registry.Suggest)

	menus := NewMenuHandler(deps.Composition, deps.Catalog, log)
	menuGroup := api.Group("/menus")
	menuGroup.Put("/", menus.Sync)
	menuGroup.Get("/:id/composition", menus.Composition)
	menuGroup.Get("/:id/effective-stock", menus.EffectiveStock)
	menuGroup.Get("/:id/unit-cost", menus.UnitCost)
	menuGroup.Get("/:id/availability", menus.Availability)

	consumptions := NewConsumptionHandler(deps.Consumption, log)
	consumptionGroup := api.Group("/consumptions")
	consumptionGroup.Post("/", consumptions.Consume)
	consumptionGroup.Get("/:id", consumptions.Get)
	consumptionGroup.Post("/:id/reverse", consumptions.Reverse)

	reports := NewReportHandler(deps.Reports, log)
	reportGroup := api.Group("/reports")
	reportGroup.Get("/ledger", reports.LedgerHistory)
	reportGroup.Get("/movement-totals", reports.MovementTotals)
	reportGroup.Get("/menu-margins", reports.MenuMargins)
}
