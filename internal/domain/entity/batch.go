package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch es un lote de compra derivado de una entrada con metadatos de compra.
// Los lotes de un ingrediente forman una secuencia estricta por Sequence; Remaining
// solo decrece por asignaciones FIFO y solo se restaura por reversión exacta.
type Batch struct {
	ID               string
	IngredientID     string
	MovementID       string
	Sequence         int64
	InboundQuantity  decimal.Decimal // unidades de almacenamiento
	PurchaseQuantity *decimal.Decimal
	PurchaseUnitID   string
	PurchasePrice    *decimal.Decimal
	UnitCost         *decimal.Decimal // precio / cantidad de entrada (por unidad de almacenamiento)
	Remaining        decimal.Decimal
	CreatedAt        time.Time
}

// IsOpen indica si el lote aún tiene remanente.
func (b *Batch) IsOpen() bool {
	return b.Remaining.IsPositive()
}

// PurchaseUnitCost devuelve precio / cantidad de compra cuando ambos se conocen.
func (b *Batch) PurchaseUnitCost() (decimal.Decimal, bool) {
	if b.PurchasePrice == nil || b.PurchaseQuantity == nil || !b.PurchaseQuantity.IsPositive() {
		return decimal.Zero, false
	}
	return b.PurchasePrice.Div(*b.PurchaseQuantity), true
}

// EstimateRemainingPurchaseUnits estima cuántas unidades de compra quedan:
// PurchaseQuantity * Remaining / InboundQuantity. Es una estimación proporcional,
// no un conteo físico; no debe usarse como base para nuevas deducciones.
func (b *Batch) EstimateRemainingPurchaseUnits() (decimal.Decimal, bool) {
	if b.PurchaseQuantity == nil || !b.InboundQuantity.IsPositive() {
		return decimal.Zero, false
	}
	return b.PurchaseQuantity.Mul(b.Remaining).Div(b.InboundQuantity), true
}

// BatchAllocation es la porción de una deducción tomada de un lote. Position conserva
// el orden original de asignación para que la reversión lo recorra al revés.
type BatchAllocation struct {
	MovementID string
	BatchID    string
	Quantity   decimal.Decimal
	Position   int
}
