package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

// ReportHandler reportes de lectura sobre el libro.
type ReportHandler struct {
	uc  *inventory.ReportUseCase
	log *logger.Logger
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *inventory.ReportUseCase, log *logger.Logger) *ReportHandler {
	return &ReportHandler{uc: uc, log: log}
}

// LedgerHistory GET /api/v1/reports/ledger?from=&to=&limit=&offset=
func (h *ReportHandler) LedgerHistory(c *fiber.Ctx) error {
	from, err := parseTime(c, "from")
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return writeError(c, h.log, err)
	}
	page := parsePage(c)
	list, err := h.uc.LedgerHistory(c.UserContext(), from, to, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"movements": dto.NewMovementResponses(list),
		"page":      dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// MovementTotals GET /api/v1/reports/movement-totals?from=&to=
func (h *ReportHandler) MovementTotals(c *fiber.Ctx) error {
	from, err := parseTime(c, "from")
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return writeError(c, h.log, err)
	}
	totals, err := h.uc.MovementTotals(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewMovementTotalsResponses(totals))
}

// MenuMargins godoc
// @Summary      Margen por porción de cada menú activo
// @Description  Ordenado de mayor a menor margen; los menús con unidades sin plantilla se marcan not_configured.
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/reports/menu-margins [get]
func (h *ReportHandler) MenuMargins(c *fiber.Ctx) error {
	rows, err := h.uc.MenuMargins(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":   len(rows),
		"margins": rows,
	})
}
