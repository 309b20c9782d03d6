package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

// StockHandler maneja entradas, salidas, ajustes y consultas del libro (protegido).
type StockHandler struct {
	uc  *inventory.StockLedgerUseCase
	log *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.StockLedgerUseCase, log *logger.Logger) *StockHandler {
	return &StockHandler{uc: uc, log: log}
}

// AddStock godoc
// @Summary      Registrar entrada de stock
// @Description  quantity va en unidades de almacenamiento y se registra tal cual; con datos de compra abre un lote.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AddStockRequest  true  "ingredient_id, quantity, purchase_* opcionales"
// @Success      201   {object}  dto.StockEntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/in [post]
func (h *StockHandler) AddStock(c *fiber.Ctx) error {
	actor := GetActor(c)
	if actor == "" {
		return unauthorized(c)
	}
	var in dto.AddStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AddStockFromRequest(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ReduceStock godoc
// @Summary      Registrar salida manual (FIFO)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReduceStockRequest  true  "ingredient_id, quantity"
// @Success      201   {object}  dto.StockDeductionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/out [post]
func (h *StockHandler) ReduceStock(c *fiber.Ctx) error {
	actor := GetActor(c)
	if actor == "" {
		return unauthorized(c)
	}
	var in dto.ReduceStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ReduceStockFromRequest(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// AdjustStock godoc
// @Summary      Registrar ajuste de stock (delta firmado)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "ingredient_id, delta"
// @Success      201   {object}  dto.StockDeductionResponse
// @Router       /api/v1/stock/adjustments [post]
func (h *StockHandler) AdjustStock(c *fiber.Ctx) error {
	actor := GetActor(c)
	if actor == "" {
		return unauthorized(c)
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AdjustStockFromRequest(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMovements godoc
// @Summary      Listar movimientos del libro
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        ingredient_id  query  string  false  "Filtrar por ingrediente"
// @Param        menu_id        query  string  false  "Filtrar por menú autogestionado"
// @Param        from           query  string  false  "RFC3339"
// @Param        to             query  string  false  "RFC3339"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	from, err := parseTime(c, "from")
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return writeError(c, h.log, err)
	}
	page := parsePage(c)
	list, err := h.uc.ListMovements(c.UserContext(), repository.MovementFilter{
		IngredientID: c.Query("ingredient_id"),
		MenuID:       c.Query("menu_id"),
		From:         from,
		To:           to,
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"movements": dto.NewMovementResponses(list),
		"page":      dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetMovement godoc
// @Summary      Detalle de un movimiento con sus asignaciones a lotes
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.StockDeductionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/stock/movements/{id} [get]
func (h *StockHandler) GetMovement(c *fiber.Ctx) error {
	detail, err := h.uc.GetMovement(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StockDeductionResponse{
		Movement:    dto.NewMovementResponse(detail.Movement),
		Allocations: dto.NewAllocationResponses(detail.Allocations),
	})
}

// ListBatches godoc
// @Summary      Lotes de un ingrediente en orden FIFO
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ingrediente"
// @Success      200  {array}   dto.BatchResponse
// @Router       /api/v1/ingredients/{id}/batches [get]
func (h *StockHandler) ListBatches(c *fiber.Ctx) error {
	batches, err := h.uc.ListBatches(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, dto.NewBatchResponse(b))
	}
	return c.JSON(out)
}
