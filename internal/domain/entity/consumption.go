package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Consumption registra una venta aplicada al stock, con lo necesario para revertirla exactamente.
type Consumption struct {
	ID         string
	Reference  string // id de la venta en el flujo externo; opcional, único si viene
	MenuID     string
	Portions   decimal.Decimal
	Actor      string
	Lines      []ConsumptionLine
	CreatedAt  time.Time
	ReversedAt *time.Time
	ReversedBy string
}

// IsReversed indica si el consumo ya fue revertido.
func (c *Consumption) IsReversed() bool {
	return c.ReversedAt != nil
}

// ConsumptionLine es la deducción aplicada a un ingrediente (o al contador del menú).
// Allocations se carga desde batch_allocations del movimiento.
type ConsumptionLine struct {
	Position     int
	IngredientID string
	MenuID       string
	Quantity     decimal.Decimal
	MovementID   string
	Allocations  []BatchAllocation
}
