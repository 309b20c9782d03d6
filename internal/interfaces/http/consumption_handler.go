package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

// ConsumptionHandler ventas aplicadas al stock y su reversión.
type ConsumptionHandler struct {
	uc  *inventory.ConsumptionUseCase
	log *logger.Logger
}

// NewConsumptionHandler construye el handler.
func NewConsumptionHandler(uc *inventory.ConsumptionUseCase, log *logger.Logger) *ConsumptionHandler {
	return &ConsumptionHandler{uc: uc, log: log}
}

// Consume godoc
// @Summary      Aplicar una venta al stock
// @Description  Todo o nada: si un ingrediente no alcanza no se descuenta ninguno.
//
//	Con reference repetida devuelve el consumo ya aplicado.
//
// @Tags         consumptions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeRequest  true  "menu_id, portions, reference"
// @Success      201   {object}  dto.ConsumptionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/v1/consumptions [post]
func (h *ConsumptionHandler) Consume(c *fiber.Ctx) error {
	actor := GetActor(c)
	if actor == "" {
		return unauthorized(c)
	}
	var in dto.ConsumeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ConsumeFromRequest(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Reverse POST /api/v1/consumptions/:id/reverse
func (h *ConsumptionHandler) Reverse(c *fiber.Ctx) error {
	actor := GetActor(c)
	if actor == "" {
		return unauthorized(c)
	}
	reversed, err := h.uc.Reverse(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewConsumptionResponse(reversed))
}

// Get GET /api/v1/consumptions/:id
func (h *ConsumptionHandler) Get(c *fiber.Ctx) error {
	found, err := h.uc.GetConsumption(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewConsumptionResponse(found))
}
