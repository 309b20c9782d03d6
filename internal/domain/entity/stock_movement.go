package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de stock.
const (
	MovementTypeIn         = "in"
	MovementTypeOut        = "out"
	MovementTypeAdjustment = "adjustment"
)

// Origen del movimiento (para auditoría y reportes).
const (
	MovementSourceManual   = "manual"
	MovementSourceSale     = "sale"
	MovementSourceReversal = "reversal"
)

// PurchaseInfo son los metadatos de compra de una entrada; si vienen, la entrada abre un lote.
type PurchaseInfo struct {
	Quantity *decimal.Decimal // cantidad en unidad de compra
	UnitID   string
	Price    *decimal.Decimal // precio total pagado por la compra
}

// StockMovement es un registro inmutable del libro. Exactamente uno de IngredientID o
// MenuID está definido (los menús autogestionados usan la misma forma de registro).
// Quantity va firmada: positiva para in y ajuste+, negativa para out y ajuste-.
type StockMovement struct {
	ID            string
	IngredientID  string
	MenuID        string
	Type          string
	Source        string
	Quantity      decimal.Decimal
	Purchase      *PurchaseInfo
	BatchID       string // lote abierto por esta entrada, si aplica
	ConsumptionID string
	ReversalOf    string // movimiento que esta entrada revierte
	Note          string
	Actor         string
	CreatedAt     time.Time
}

// SubjectID devuelve el ingrediente o menú afectado.
func (m *StockMovement) SubjectID() string {
	if m.IngredientID != "" {
		return m.IngredientID
	}
	return m.MenuID
}

// MovementTotals agrega movimientos de un ingrediente en un rango.
type MovementTotals struct {
	IngredientID string
	In           decimal.Decimal
	Out          decimal.Decimal // positivo
	Adjustment   decimal.Decimal // firmado
	Net          decimal.Decimal
	Count        int
}
