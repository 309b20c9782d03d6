package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit es una unidad de medida canónica (g, kg, ml, pcs...). Dato de referencia inmutable.
type Unit struct {
	ID           string
	Name         string
	Abbreviation string
}

// ConversionTemplate relaciona una unidad de compra con la unidad de almacenamiento
// de un ingrediente: 1 TargetUnit = Factor unidades de almacenamiento.
// Es solo una sugerencia; nunca se impone sobre la cantidad que ingresa el operador.
type ConversionTemplate struct {
	IngredientID string
	TargetUnitID string
	Factor       decimal.Decimal
	Note         string
	UpdatedAt    time.Time
}

// SuggestStorageQuantity devuelve purchaseQty * Factor.
func (t ConversionTemplate) SuggestStorageQuantity(purchaseQty decimal.Decimal) decimal.Decimal {
	return purchaseQty.Mul(t.Factor)
}
