package dto

import (
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AddStockRequest body para POST /api/v1/stock/in.
// Quantity (unidades de almacenamiento) es la que ingresó el operador y es la que se registra.
type AddStockRequest struct {
	IngredientID     string           `json:"ingredient_id"`
	Quantity         decimal.Decimal  `json:"quantity"`
	PurchaseQuantity *decimal.Decimal `json:"purchase_quantity,omitempty"`
	PurchaseUnitID   string           `json:"purchase_unit_id,omitempty"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price,omitempty"`
	Note             string           `json:"note,omitempty"`
}

// HasPurchase indica si la entrada trae metadatos de compra (abre un lote).
func (r AddStockRequest) HasPurchase() bool {
	return r.PurchaseQuantity != nil || r.PurchaseUnitID != "" || r.PurchasePrice != nil
}

// ReduceStockRequest body para POST /api/v1/stock/out.
type ReduceStockRequest struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Note         string          `json:"note"`
}

// AdjustStockRequest body para POST /api/v1/stock/adjustments. Delta firmado.
type AdjustStockRequest struct {
	IngredientID string          `json:"ingredient_id"`
	Delta        decimal.Decimal `json:"delta"`
	Note         string          `json:"note"`
}

// ConsumeRequest body para POST /api/v1/consumptions.
type ConsumeRequest struct {
	MenuID    string          `json:"menu_id"`
	Portions  decimal.Decimal `json:"portions"`
	Reference string          `json:"reference,omitempty"`
}

// MovementResponse movimiento del libro.
type MovementResponse struct {
	ID               string           `json:"id"`
	IngredientID     string           `json:"ingredient_id,omitempty"`
	MenuID           string           `json:"menu_id,omitempty"`
	Type             string           `json:"type"`
	Source           string           `json:"source"`
	Quantity         decimal.Decimal  `json:"quantity"`
	PurchaseQuantity *decimal.Decimal `json:"purchase_quantity,omitempty"`
	PurchaseUnitID   string           `json:"purchase_unit_id,omitempty"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price,omitempty"`
	BatchID          string           `json:"batch_id,omitempty"`
	ConsumptionID    string           `json:"consumption_id,omitempty"`
	ReversalOf       string           `json:"reversal_of,omitempty"`
	Note             string           `json:"note,omitempty"`
	Actor            string           `json:"actor"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AllocationResponse porción de una deducción tomada de un lote.
type AllocationResponse struct {
	BatchID  string          `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Position int             `json:"position"`
}

// BatchResponse lote de compra. EstimatedPurchaseUnits es una estimación proporcional
// (cantidad de compra * remanente / entrada), no un conteo físico.
type BatchResponse struct {
	ID                     string           `json:"id"`
	IngredientID           string           `json:"ingredient_id"`
	MovementID             string           `json:"movement_id,omitempty"`
	Sequence               int64            `json:"sequence"`
	InboundQuantity        decimal.Decimal  `json:"inbound_quantity"`
	Remaining              decimal.Decimal  `json:"remaining"`
	PurchaseQuantity       *decimal.Decimal `json:"purchase_quantity,omitempty"`
	PurchaseUnitID         string           `json:"purchase_unit_id,omitempty"`
	PurchasePrice          *decimal.Decimal `json:"purchase_price,omitempty"`
	UnitCost               *decimal.Decimal `json:"unit_cost,omitempty"`
	PurchaseUnitCost       *decimal.Decimal `json:"purchase_unit_cost,omitempty"`
	EstimatedPurchaseUnits *decimal.Decimal `json:"estimated_purchase_units,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

// StockEntryResponse respuesta de una entrada.
type StockEntryResponse struct {
	Movement MovementResponse `json:"movement"`
	Batch    *BatchResponse   `json:"batch,omitempty"`
}

// StockDeductionResponse respuesta de una salida o ajuste.
type StockDeductionResponse struct {
	Movement    MovementResponse     `json:"movement"`
	Allocations []AllocationResponse `json:"allocations"`
}

// ConsumptionLineResponse línea de consumo con sus asignaciones.
type ConsumptionLineResponse struct {
	IngredientID string               `json:"ingredient_id,omitempty"`
	MenuID       string               `json:"menu_id,omitempty"`
	Quantity     decimal.Decimal      `json:"quantity"`
	MovementID   string               `json:"movement_id"`
	Allocations  []AllocationResponse `json:"allocations"`
}

// ConsumptionResponse consumo de venta.
type ConsumptionResponse struct {
	ID         string                    `json:"id"`
	Reference  string                    `json:"reference,omitempty"`
	MenuID     string                    `json:"menu_id"`
	Portions   decimal.Decimal           `json:"portions"`
	Actor      string                    `json:"actor"`
	Lines      []ConsumptionLineResponse `json:"lines"`
	CreatedAt  time.Time                 `json:"created_at"`
	ReversedAt *time.Time                `json:"reversed_at,omitempty"`
	ReversedBy string                    `json:"reversed_by,omitempty"`
}

// UnitResponse unidad de medida.
type UnitResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// ConversionTemplateResponse plantilla de conversión (solo sugerencia).
type ConversionTemplateResponse struct {
	IngredientID string          `json:"ingredient_id"`
	TargetUnitID string          `json:"target_unit_id"`
	Factor       decimal.Decimal `json:"factor"`
	Note         string          `json:"note,omitempty"`
}

// SuggestionResponse cantidad sugerida en unidades de almacenamiento.
type SuggestionResponse struct {
	IngredientID     string          `json:"ingredient_id"`
	UnitID           string          `json:"unit_id"`
	PurchaseQuantity decimal.Decimal `json:"purchase_quantity"`
	Factor           decimal.Decimal `json:"factor"`
	SuggestedStorage decimal.Decimal `json:"suggested_storage_quantity"`
}

// CompositionLineResponse línea de receta.
type CompositionLineResponse struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       string          `json:"unit_id,omitempty"`
	Position     int             `json:"position"`
}

// UnitCostLineResponse costo FIFO de un ingrediente por porción.
type UnitCostLineResponse struct {
	IngredientID string          `json:"ingredient_id"`
	PerPortion   decimal.Decimal `json:"per_portion"`
	Cost         decimal.Decimal `json:"cost"`
	Estimated    bool            `json:"estimated"`
}

// UnitCostResponse costo por porción (HPP).
type UnitCostResponse struct {
	MenuID    string                 `json:"menu_id"`
	Total     decimal.Decimal        `json:"total"`
	Estimated bool                   `json:"estimated"`
	Lines     []UnitCostLineResponse `json:"lines"`
}

// MovementTotalsResponse totales por ingrediente en un rango.
type MovementTotalsResponse struct {
	IngredientID string          `json:"ingredient_id"`
	In           decimal.Decimal `json:"in"`
	Out          decimal.Decimal `json:"out"`
	Adjustment   decimal.Decimal `json:"adjustment"`
	Net          decimal.Decimal `json:"net"`
	Count        int             `json:"count"`
}

// MenuMarginDTO margen por porción de un menú, ordenado de mayor a menor margen.
type MenuMarginDTO struct {
	MenuID         string          `json:"menu_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	StockMode      string          `json:"stock_mode"`
	Price          decimal.Decimal `json:"price"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	CostEstimated  bool            `json:"cost_estimated"`
	Margin         decimal.Decimal `json:"margin"`
	MarginPct      decimal.Decimal `json:"margin_pct"`
	EffectiveStock decimal.Decimal `json:"effective_stock"`
	NotConfigured  bool            `json:"not_configured,omitempty"` // receta con unidad sin plantilla
	Rank           int             `json:"rank"`
}

// NewMovementResponse mapea un movimiento.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	r := MovementResponse{
		ID:            m.ID,
		IngredientID:  m.IngredientID,
		MenuID:        m.MenuID,
		Type:          m.Type,
		Source:        m.Source,
		Quantity:      m.Quantity,
		BatchID:       m.BatchID,
		ConsumptionID: m.ConsumptionID,
		ReversalOf:    m.ReversalOf,
		Note:          m.Note,
		Actor:         m.Actor,
		CreatedAt:     m.CreatedAt,
	}
	if p := m.Purchase; p != nil {
		r.PurchaseQuantity = p.Quantity
		r.PurchaseUnitID = p.UnitID
		r.PurchasePrice = p.Price
	}
	return r
}

// NewMovementResponses mapea una lista de movimientos.
func NewMovementResponses(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, NewMovementResponse(m))
	}
	return out
}

// NewAllocationResponses mapea asignaciones conservando su orden.
func NewAllocationResponses(list []entity.BatchAllocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(list))
	for _, a := range list {
		out = append(out, AllocationResponse{BatchID: a.BatchID, Quantity: a.Quantity, Position: a.Position})
	}
	return out
}

// NewBatchResponse mapea un lote con su estimación de unidades de compra.
func NewBatchResponse(b *entity.Batch) BatchResponse {
	r := BatchResponse{
		ID:               b.ID,
		IngredientID:     b.IngredientID,
		MovementID:       b.MovementID,
		Sequence:         b.Sequence,
		InboundQuantity:  b.InboundQuantity,
		Remaining:        b.Remaining,
		PurchaseQuantity: b.PurchaseQuantity,
		PurchaseUnitID:   b.PurchaseUnitID,
		PurchasePrice:    b.PurchasePrice,
		UnitCost:         b.UnitCost,
		CreatedAt:        b.CreatedAt,
	}
	if cost, ok := b.PurchaseUnitCost(); ok {
		r.PurchaseUnitCost = &cost
	}
	if est, ok := b.EstimateRemainingPurchaseUnits(); ok {
		r.EstimatedPurchaseUnits = &est
	}
	return r
}

// NewConsumptionResponse mapea un consumo.
func NewConsumptionResponse(c *entity.Consumption) ConsumptionResponse {
	r := ConsumptionResponse{
		ID:         c.ID,
		Reference:  c.Reference,
		MenuID:     c.MenuID,
		Portions:   c.Portions,
		Actor:      c.Actor,
		Lines:      make([]ConsumptionLineResponse, 0, len(c.Lines)),
		CreatedAt:  c.CreatedAt,
		ReversedAt: c.ReversedAt,
		ReversedBy: c.ReversedBy,
	}
	for _, l := range c.Lines {
		r.Lines = append(r.Lines, ConsumptionLineResponse{
			IngredientID: l.IngredientID,
			MenuID:       l.MenuID,
			Quantity:     l.Quantity,
			MovementID:   l.MovementID,
			Allocations:  NewAllocationResponses(l.Allocations),
		})
	}
	return r
}

// NewUnitResponses mapea unidades.
func NewUnitResponses(list []*entity.Unit) []UnitResponse {
	out := make([]UnitResponse, 0, len(list))
	for _, u := range list {
		out = append(out, UnitResponse{ID: u.ID, Name: u.Name, Abbreviation: u.Abbreviation})
	}
	return out
}

// NewConversionTemplateResponses mapea plantillas de conversión.
func NewConversionTemplateResponses(list []*entity.ConversionTemplate) []ConversionTemplateResponse {
	out := make([]ConversionTemplateResponse, 0, len(list))
	for _, t := range list {
		out = append(out, ConversionTemplateResponse{IngredientID: t.IngredientID, TargetUnitID: t.TargetUnitID, Factor: t.Factor, Note: t.Note})
	}
	return out
}

// NewCompositionLineResponses mapea una receta conservando el orden.
func NewCompositionLineResponses(list []*entity.CompositionLine) []CompositionLineResponse {
	out := make([]CompositionLineResponse, 0, len(list))
	for _, l := range list {
		out = append(out, CompositionLineResponse{IngredientID: l.IngredientID, Quantity: l.Quantity, UnitID: l.UnitID, Position: l.Position})
	}
	return out
}

// NewMovementTotalsResponses mapea los totales por ingrediente.
func NewMovementTotalsResponses(list []entity.MovementTotals) []MovementTotalsResponse {
	out := make([]MovementTotalsResponse, 0, len(list))
	for _, t := range list {
		out = append(out, MovementTotalsResponse{
			IngredientID: t.IngredientID,
			In:           t.In,
			Out:          t.Out,
			Adjustment:   t.Adjustment,
			Net:          t.Net,
			Count:        t.Count,
		})
	}
	return out
}
