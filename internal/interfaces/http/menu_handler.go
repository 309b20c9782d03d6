package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

// MenuHandler recetas, disponibilidad y costo de menús, más la sincronización del catálogo.
type MenuHandler struct {
	composition *inventory.CompositionUseCase
	catalog     *inventory.CatalogUseCase
	log         *logger.Logger
}

// NewMenuHandler construye el handler.
func NewMenuHandler(composition *inventory.CompositionUseCase, catalog *inventory.CatalogUseCase, log *logger.Logger) *MenuHandler {
	return &MenuHandler{composition: composition, catalog: catalog, log: log}
}

// Sync godoc
// @Summary      Crear o actualizar un menú desde el colaborador de ventas
// @Description  Acepta price o selling_price; si vienen ambos deben coincidir.
// @Tags         menus
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MenuSyncRequest  true  "Menú"
// @Success      200   {object}  dto.MenuResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/menus [put]
func (h *MenuHandler) Sync(c *fiber.Ctx) error {
	actor := GetActor(c)
	if actor == "" {
		return unauthorized(c)
	}
	var in dto.MenuSyncRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.catalog.SyncMenu(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Composition GET /api/v1/menus/:id/composition
func (h *MenuHandler) Composition(c *fiber.Ctx) error {
	lines, err := h.composition.CompositionOf(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewCompositionLineResponses(lines))
}

// EffectiveStock GET /api/v1/menus/:id/effective-stock
func (h *MenuHandler) EffectiveStock(c *fiber.Ctx) error {
	stock, err := h.composition.EffectiveStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"menu_id": c.Params("id"), "effective_stock": stock})
}

// UnitCost godoc
// @Summary      Costo por porción (FIFO)
// @Description  Valora cada ingrediente con los lotes que se consumirían primero; lo que no cubren
//
//	los lotes se valora con el precio de referencia y se marca como estimado.
//
// @Tags         menus
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del menú"
// @Success      200  {object}  dto.UnitCostResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/v1/menus/{id}/unit-cost [get]
func (h *MenuHandler) UnitCost(c *fiber.Ctx) error {
	res, err := h.composition.UnitCost(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.UnitCostResponse{
		MenuID:    res.MenuID,
		Total:     res.Total,
		Estimated: res.Estimated,
		Lines:     make([]dto.UnitCostLineResponse, 0, len(res.Lines)),
	}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, dto.UnitCostLineResponse{
			IngredientID: l.IngredientID,
			PerPortion:   l.PerPortion,
			Cost:         l.Cost,
			Estimated:    l.Estimated,
		})
	}
	return c.JSON(out)
}

// Availability GET /api/v1/menus/:id/availability (servido desde caché si está vigente)
func (h *MenuHandler) Availability(c *fiber.Ctx) error {
	a, err := h.composition.Availability(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(a)
}
