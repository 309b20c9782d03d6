package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modos de stock de un menú.
const (
	StockModeSelfManaged = "self_managed"
	StockModeDerived     = "derived"
)

// Menu es un producto vendible. En modo derivado no guarda stock: se calcula desde su receta.
type Menu struct {
	ID        string
	Name      string
	Category  string
	Price     decimal.Decimal
	StockMode string
	Stock     decimal.Decimal // solo para self_managed
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDerived indica si el stock del menú se deriva de sus ingredientes.
func (m *Menu) IsDerived() bool {
	return m.StockMode == StockModeDerived
}

// ValidStockMode valida el valor de StockMode.
func ValidStockMode(mode string) bool {
	return mode == StockModeSelfManaged || mode == StockModeDerived
}

// CompositionLine es una línea de receta: cantidad de ingrediente por porción.
// UnitID vacío significa la unidad de almacenamiento del ingrediente.
type CompositionLine struct {
	ID           string
	MenuID       string
	IngredientID string
	Quantity     decimal.Decimal
	UnitID       string
	Position     int
}
