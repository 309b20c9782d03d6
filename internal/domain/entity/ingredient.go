package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient representa una materia prima con stock en unidades de almacenamiento.
// AvailableStock nunca es negativo y siempre coincide con la suma de sus movimientos.
type Ingredient struct {
	ID             string
	Name           string
	StorageUnitID  string
	PurchaseUnitID string // vacío si no tiene unidad de compra
	AvailableStock decimal.Decimal
	ReferencePrice decimal.Decimal // informativo, por unidad de almacenamiento
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
