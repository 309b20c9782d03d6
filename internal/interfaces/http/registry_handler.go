package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
	"github.com/shopspring/decimal"
)

// RegistryHandler unidades y plantillas de conversión (solo lectura).
type RegistryHandler struct {
	uc  *inventory.RegistryUseCase
	log *logger.Logger
}

// NewRegistryHandler construye el handler.
func NewRegistryHandler(uc *inventory.RegistryUseCase, log *logger.Logger) *RegistryHandler {
	return &RegistryHandler{uc: uc, log: log}
}

// ListUnits GET /api/v1/units
func (h *RegistryHandler) ListUnits(c *fiber.Ctx) error {
	units, err := h.uc.ListUnits(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewUnitResponses(units))
}

// ListTemplates GET /api/v1/ingredients/:id/templates
func (h *RegistryHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.uc.ListTemplates(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewConversionTemplateResponses(templates))
}

// Suggest GET /api/v1/ingredients/:id/suggestion?unit_id=&quantity=
// Devuelve la cantidad en unidades de almacenamiento que sugiere la plantilla; el operador decide.
func (h *RegistryHandler) Suggest(c *fiber.Ctx) error {
	ingredientID, unitID := c.Params("id"), c.Query("unit_id")
	qty, err := decimal.NewFromString(c.Query("quantity"))
	if err != nil {
		return writeError(c, h.log, domain.ErrInvalidQuantity)
	}
	suggested, err := h.uc.SuggestStorageQuantity(c.UserContext(), ingredientID, unitID, qty)
	if err != nil {
		return writeError(c, h.log, err)
	}
	factor := suggested.Div(qty)
	return c.JSON(dto.SuggestionResponse{
		IngredientID:     ingredientID,
		UnitID:           unitID,
		PurchaseQuantity: qty,
		Factor:           factor,
		SuggestedStorage: suggested,
	})
}

// ResolveFactor GET /api/v1/ingredients/:id/factor?unit_id=
func (h *RegistryHandler) ResolveFactor(c *fiber.Ctx) error {
	factor, err := h.uc.ResolveFactor(c.UserContext(), c.Params("id"), c.Query("unit_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ingredient_id": c.Params("id"), "unit_id": c.Query("unit_id"), "factor": factor})
}
