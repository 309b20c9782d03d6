package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// NewBatch abre un lote con remanente igual a la cantidad de entrada.
// El costo unitario (por unidad de almacenamiento) solo se conoce si hay precio.
// Sequence lo asigna el repositorio al persistir.
func NewBatch(ingredientID, movementID string, inbound decimal.Decimal, purchase *entity.PurchaseInfo, now time.Time) (*entity.Batch, error) {
	if !inbound.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	b := &entity.Batch{
		ID:              uuid.New().String(),
		IngredientID:    ingredientID,
		MovementID:      movementID,
		InboundQuantity: inbound,
		Remaining:       inbound,
		CreatedAt:       now,
	}
	if purchase == nil {
		return b, nil
	}
	b.PurchaseUnitID = purchase.UnitID
	if purchase.Quantity != nil {
		if !purchase.Quantity.IsPositive() {
			return nil, domain.ErrInvalidQuantity
		}
		q := *purchase.Quantity
		b.PurchaseQuantity = &q
	}
	if purchase.Price != nil {
		if purchase.Price.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		p := *purchase.Price
		b.PurchasePrice = &p
		cost := RoundQuantity(p.Div(inbound))
		b.UnitCost = &cost
	}
	return b, nil
}
